package main

import (
	"github.com/giygas/drugdb/entities"
	"github.com/spf13/cobra"
)

// ManufacturerListCLI lists manufacturers
type ManufacturerListCLI struct {
	Manufacturers []entities.Manufacturer `json:"manufacturers"`
	Degraded      bool                    `json:"degraded"`
}

func newManufacturersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manufacturers",
		Short: "List and create manufacturers",
	}
	cmd.AddCommand(newManufacturersListCmd(a), newManufacturersCreateCmd(a))
	return cmd
}

func newManufacturersListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List manufacturers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			manufacturers := a.queries.Manufacturers(ctx)
			if manufacturers.IsError() {
				return manufacturers.Err
			}
			warnDegraded(cmd, manufacturers.Degraded, manufacturers.Cause)

			return a.print(cmd, &ManufacturerListCLI{
				Manufacturers: manufacturers.Data,
				Degraded:      manufacturers.Degraded,
			})
		},
	}
}

func newManufacturersCreateCmd(a *app) *cobra.Command {
	var name, famousFor string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a manufacturer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manufacturer := entities.ManufacturerCreate{
				Name:      name,
				FamousFor: optional(cmd, "famous-for", famousFor),
			}
			if err := a.validator.ValidateManufacturerCreate(&manufacturer); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()

			resp, err := a.queries.CreateManufacturer(ctx, manufacturer)
			if err != nil {
				return err
			}
			return a.print(cmd, &MessageCLI{Message: resp.Message, ID: resp.ID()})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Manufacturer name")
	cmd.Flags().StringVar(&famousFor, "famous-for", "", "What the manufacturer is known for")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
