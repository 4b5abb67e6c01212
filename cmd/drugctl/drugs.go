package main

import (
	"fmt"
	"strings"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/view"
	"github.com/giygas/drugdb/viewmodel"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

// DrugListCLI is one page of the drug list
type DrugListCLI struct {
	Query      view.State       `json:"-"`
	Drugs      []viewmodel.Card `json:"drugs"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	MaxPage    int              `json:"maxPage"`
	Degraded   bool             `json:"degraded"`
}

// DrugCLI is one drug mapped for display
type DrugCLI struct {
	viewmodel.DrugViewModel
	Degraded bool `json:"degraded"`
}

// MessageCLI acknowledges a mutation
type MessageCLI struct {
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

// drugFields are the optional text fields shared by create and update
type drugFields struct {
	name        string
	class       string
	origin      string
	history     string
	sideEffects string
}

func (f *drugFields) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Drug name")
	cmd.Flags().StringVar(&f.class, "class", "", "Drug class, e.g. NSAID")
	cmd.Flags().StringVar(&f.origin, "origin", "", "Origin, e.g. Synthetic")
	cmd.Flags().StringVar(&f.history, "history", "", "History shown as the description")
	cmd.Flags().StringVar(&f.sideEffects, "side-effects", "", "Side effects, separated by . , or ;")
}

// optional returns a pointer to value when the flag was given
func optional(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func newDrugsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drugs",
		Short: "List, show and edit drugs",
	}
	cmd.AddCommand(
		newDrugsListCmd(a),
		newDrugsShowCmd(a),
		newDrugsCreateCmd(a),
		newDrugsUpdateCmd(a),
		newDrugsDeleteCmd(a),
		newAttachCmd(a, "attach-manufacturer", "manufacturer"),
		newAttachCmd(a, "attach-molecule", "molecule"),
	)
	return cmd
}

func newDrugsListCmd(a *app) *cobra.Command {
	var (
		search   string
		filters  string
		sortKey  string
		page     int
		pageSize int
		locale   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List drugs with search, category filters, sorting and paging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.validator.ValidateInput(search); err != nil {
				return err
			}
			if _, err := a.validator.ValidatePage(fmt.Sprint(page)); err != nil {
				return err
			}

			state := view.NewState(pageSize)
			state.SetSearch(search)
			if filters != "" {
				categories := strings.Split(filters, ",")
				if err := a.validator.ValidateCategories(categories); err != nil {
					return err
				}
				state.SetCategories(categories)
			}
			key := view.SortKey(sortKey)
			if !key.Valid() {
				return fmt.Errorf("sort must be one of: name, category")
			}
			state.SetSort(key)
			state.SetPage(page)

			tag, err := language.Parse(locale)
			if err != nil {
				return fmt.Errorf("invalid locale %q: %w", locale, err)
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			drugs := a.queries.Drugs(ctx)
			if drugs.IsError() {
				return drugs.Err
			}
			warnDegraded(cmd, drugs.Degraded, drugs.Cause)

			result := view.Apply(drugs.Data, state, view.NewSorter(tag))

			return a.print(cmd, &DrugListCLI{
				Query:      state,
				Drugs:      viewmodel.ToCards(result.Items),
				Page:       result.Page,
				PageSize:   result.PageSize,
				TotalItems: result.TotalItems,
				MaxPage:    result.MaxPage,
				Degraded:   drugs.Degraded,
			})
		},
	}

	cmd.Flags().StringVar(&search, "q", "", "Search text matched against name and class")
	cmd.Flags().StringVar(&filters, "filters", "", "Categories to keep (comma-separated)")
	cmd.Flags().StringVar(&sortKey, "sort", string(view.SortByName), "Sort key (name, category)")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", view.DefaultPageSize, "Drugs per page")
	cmd.Flags().StringVar(&locale, "locale", "en", "Collation locale used for sorting")
	return cmd
}

func newDrugsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.validator.ValidateID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			drug := a.queries.Drug(ctx, id)
			if drug.IsError() {
				return drug.Err
			}
			warnDegraded(cmd, drug.Degraded, drug.Cause)

			return a.print(cmd, &DrugCLI{DrugViewModel: drug.Data, Degraded: drug.Degraded})
		},
	}
}

func newDrugsCreateCmd(a *app) *cobra.Command {
	var (
		fields          drugFields
		manufacturerIDs []int
		moleculeIDs     []int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a drug, optionally linking manufacturers and molecules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			drug := entities.DrugCreate{
				Name:            fields.name,
				Class:           optional(cmd, "class", fields.class),
				Origin:          optional(cmd, "origin", fields.origin),
				History:         optional(cmd, "history", fields.history),
				SideEffects:     optional(cmd, "side-effects", fields.sideEffects),
				ManufacturerIDs: manufacturerIDs,
				MoleculeIDs:     moleculeIDs,
			}
			if err := a.validator.ValidateDrugCreate(&drug); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			resp, err := a.queries.CreateDrug(ctx, drug)
			if err != nil {
				return err
			}
			return a.print(cmd, &MessageCLI{Message: resp.Message, ID: resp.ID()})
		},
	}

	fields.register(cmd)
	cmd.Flags().IntSliceVar(&manufacturerIDs, "manufacturer-ids", nil, "Manufacturers to link (comma-separated ids)")
	cmd.Flags().IntSliceVar(&moleculeIDs, "molecule-ids", nil, "Molecules to link (comma-separated ids)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newDrugsUpdateCmd(a *app) *cobra.Command {
	var fields drugFields

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update the given fields of a drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.validator.ValidateID(args[0])
			if err != nil {
				return err
			}

			update := entities.DrugUpdate{
				Name:        optional(cmd, "name", fields.name),
				Class:       optional(cmd, "class", fields.class),
				Origin:      optional(cmd, "origin", fields.origin),
				History:     optional(cmd, "history", fields.history),
				SideEffects: optional(cmd, "side-effects", fields.sideEffects),
			}
			if err := a.validator.ValidateDrugUpdate(&update); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.queries.UpdateDrug(ctx, id, update); err != nil {
				return err
			}
			return a.print(cmd, &MessageCLI{Message: "Drug updated successfully", ID: id})
		},
	}

	fields.register(cmd)
	return cmd
}

func newDrugsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.validator.ValidateID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.queries.DeleteDrug(ctx, id); err != nil {
				return err
			}
			return a.print(cmd, &MessageCLI{Message: "Drug deleted successfully", ID: id})
		},
	}
}

// newAttachCmd builds attach-manufacturer and attach-molecule
func newAttachCmd(a *app, use, target string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("%s <drug-id> <%s-id>", use, target),
		Short: fmt.Sprintf("Link an existing %s to a drug", target),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			drugID, err := a.validator.ValidateID(args[0])
			if err != nil {
				return fmt.Errorf("drug %w", err)
			}
			targetID, err := a.validator.ValidateID(args[1])
			if err != nil {
				return fmt.Errorf("%s %w", target, err)
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			if target == "manufacturer" {
				err = a.queries.AttachManufacturer(ctx, drugID, targetID)
			} else {
				err = a.queries.AttachMolecule(ctx, drugID, targetID)
			}
			if err != nil {
				return err
			}

			label := strings.ToUpper(target[:1]) + target[1:]
			return a.print(cmd, &MessageCLI{Message: label + " added to drug", ID: drugID})
		},
	}
}
