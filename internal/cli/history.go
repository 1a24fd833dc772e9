package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/profiler/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent uploads",
		Long: `List recent uploads recorded in the history database (DATABASE_URL).
Without a database the history only lives inside a running server.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.History.Persistent() {
				return fmt.Errorf("no history database configured: set DATABASE_URL")
			}

			hist, closeHistory, err := history.Open(cmd.Context(), a.cfg.History)
			if err != nil {
				return err
			}
			defer closeHistory()

			entries, err := hist.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			return printHistory(cmd, entries)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultLimit, "Number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print entries as JSON")

	return cmd
}

func printHistory(cmd *cobra.Command, entries []history.Entry) error {
	if len(entries) == 0 {
		cmd.Println("No uploads recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tOUTCOME\tPDF\tCSV\tDURATION\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.Outcome,
			e.PDFName,
			e.CSVName,
			e.Duration.Round(time.Millisecond),
			e.Error,
		)
	}
	return tw.Flush()
}
