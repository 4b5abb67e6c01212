package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/giygas/drugdb/apiclient"
	"github.com/giygas/drugdb/config"
	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/logging"
	"github.com/giygas/drugdb/query"
	"github.com/giygas/drugdb/validation"
	"github.com/spf13/cobra"
)

// app holds what every command shares: flags and the client stack
type app struct {
	apiURL  string
	format  string
	timeout time.Duration
	verbose bool

	queries   *query.DrugQueries
	client    *query.Client
	validator interfaces.DataValidator
}

// stderrNotifier prints notifications next to the command output
type stderrNotifier struct {
	w io.Writer
}

func (n stderrNotifier) Success(message string) {
	fmt.Fprintln(n.w, message)
}

func (n stderrNotifier) Failure(message string, _ error) {
	fmt.Fprintln(n.w, "Error: "+message)
}

func defaultAPIURL() string {
	config.LoadEnvFile()
	if v := os.Getenv("API_URL"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return config.DefaultAPIURL
}

func newRootCmd() *cobra.Command {
	a := &app{validator: validation.NewDataValidator()}

	root := &cobra.Command{
		Use:   "drugctl",
		Short: "Browse and edit the drug database",
		Long: `drugctl reads and edits drugs and manufacturers through the drug REST API.

When the API cannot be reached, reads show built-in demo data and say so.

Examples:
  drugctl drugs list --q=aspirin
  drugctl drugs list --filters=nsaid,analgesic --sort=category --page=2
  drugctl drugs show 4 --format=human
  drugctl drugs create --name=Naproxen --class=NSAID --manufacturer-ids=1,2
  drugctl manufacturers list`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVar(&a.apiURL, "api-url", defaultAPIURL(), "Base URL of the drug REST API")
	root.PersistentFlags().StringVar(&a.format, "format", string(FormatJSON), "Output format (json, human)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "Request timeout")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	root.AddCommand(newDrugsCmd(a), newManufacturersCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	switch OutputFormat(a.format) {
	case FormatJSON, FormatHuman:
	default:
		return fmt.Errorf("unsupported format: %s", a.format)
	}

	level := "error"
	if a.verbose {
		level = "debug"
	}
	logging.InitConsoleLogger(cmd.ErrOrStderr(), level)

	api := apiclient.New(a.apiURL, apiclient.WithTimeout(a.timeout))
	a.client = query.New(query.Options{
		Retries:    1,
		RetryDelay: time.Second,
		Notifier:   stderrNotifier{w: cmd.ErrOrStderr()},
	})
	a.queries = query.NewDrugQueries(a.client, api)
	return nil
}

func (a *app) close() {
	if a.client != nil {
		a.client.Close()
	}
	logging.Close()
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.timeout+5*time.Second)
}

// print writes resp in the selected format
func (a *app) print(cmd *cobra.Command, resp any) error {
	out, err := FormatResponse(resp, OutputFormat(a.format))
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// warnDegraded tells the user the data shown is not from the API
func warnDegraded(cmd *cobra.Command, degraded bool, cause error) {
	if !degraded {
		return
	}
	msg := "Warning: drug API unreachable, showing demo data"
	if cause != nil {
		msg += " (" + cause.Error() + ")"
	}
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
}
