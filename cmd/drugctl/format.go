package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp any, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func formatJSON(resp any) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

func formatHuman(resp any) (string, error) {
	switch v := resp.(type) {
	case *DrugListCLI:
		return formatDrugListHuman(v), nil
	case *DrugCLI:
		return formatDrugHuman(v), nil
	case *ManufacturerListCLI:
		return formatManufacturersHuman(v), nil
	case *MessageCLI:
		if v.ID != 0 {
			return fmt.Sprintf("%s (id %d)", v.Message, v.ID), nil
		}
		return v.Message, nil
	default:
		// Unknown types fall back to JSON
		return formatJSON(resp)
	}
}

func formatDrugListHuman(resp *DrugListCLI) string {
	var b strings.Builder

	if resp.TotalItems == 0 {
		b.WriteString("No drugs found")
		if resp.Query.Search != "" || len(resp.Query.Categories) > 0 {
			b.WriteString(" matching the current search and filters")
		}
		return b.String()
	}

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tMOLECULE\t")
	for _, card := range resp.Drugs {
		name := card.Name
		if card.Warning {
			name += " (!)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", card.ID, name, card.Category, card.PrimaryMolecule)
	}
	tw.Flush()

	fmt.Fprintf(&b, "\nPage %d of %d (%d drugs)", resp.Page, resp.MaxPage, resp.TotalItems)
	if resp.Degraded {
		b.WriteString(" [demo data]")
	}
	return b.String()
}

func formatDrugHuman(resp *DrugCLI) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (#%d)\n", resp.Name, resp.ID)
	b.WriteString(strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Category:     %s\n", resp.Category)
	fmt.Fprintf(&b, "Origin:       %s\n", resp.Origin)
	if resp.Manufacturer != "" {
		fmt.Fprintf(&b, "Manufacturer: %s\n", resp.Manufacturer)
	}
	fmt.Fprintf(&b, "Molecules:    %s\n", resp.Molecules)
	fmt.Fprintf(&b, "\n%s\n", resp.Description)

	if len(resp.SideEffects) > 0 {
		b.WriteString("\nSide effects:\n")
		for _, effect := range resp.SideEffects {
			fmt.Fprintf(&b, "  - %s [%s, %s]\n", effect.Name, effect.Severity, effect.Frequency)
		}
	}

	if len(resp.UsageAreas) > 0 {
		regions := make([]string, 0, len(resp.UsageAreas))
		for _, area := range resp.UsageAreas {
			regions = append(regions, area.Region)
		}
		fmt.Fprintf(&b, "\nUsed in: %s\n", strings.Join(regions, ", "))
	}

	if resp.Degraded {
		b.WriteString("\n[demo data]\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatManufacturersHuman(resp *ManufacturerListCLI) string {
	if len(resp.Manufacturers) == 0 {
		return "No manufacturers found"
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFAMOUS FOR\t")
	for _, m := range resp.Manufacturers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", m.ManufacturerID, m.Name, m.FamousFor)
	}
	tw.Flush()

	if resp.Degraded {
		b.WriteString("[demo data]")
	}
	return strings.TrimRight(b.String(), "\n")
}
