package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dailyfinance/internal/core"
	"github.com/JonMunkholm/dailyfinance/internal/entry"
)

func newSheetsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets <file>",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readFile(args[0])
			if err != nil {
				return userError(err)
			}
			list, err := a.service.DiscoverSheets(cmd.Context(), data)
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			for _, name := range list.Sheets {
				marker := " "
				if name == list.Selected {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
}

func newImportCommand(a *app) *cobra.Command {
	var sheet string
	var owner string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import one sheet of a workbook as entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.readFile(args[0])
			if err != nil {
				return userError(err)
			}

			ctx := cmd.Context()
			if sheet == "" {
				list, err := a.service.DiscoverSheets(ctx, data)
				if err != nil {
					return userError(err)
				}
				sheet = list.Selected
			}

			summary, err := a.service.Import(ctx, core.ImportRequest{
				Data:     data,
				FileName: filepath.Base(args[0]),
				Sheet:    sheet,
				Owner:    owner,
			})
			if err != nil {
				return userError(err)
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet to import (default: first sheet)")
	cmd.Flags().StringVar(&owner, "owner", "", "owner of the imported entries (required)")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}

func printSummary(w io.Writer, s *core.ImportSummary) {
	fmt.Fprintf(w, "import %s\n", s.ImportID)
	fmt.Fprintf(w, "sheet:    %s\n", s.Sheet)
	fmt.Fprintf(w, "imported: %d\n", s.Imported)
	fmt.Fprintf(w, "skipped:  %d\n", s.Skipped)

	reasons := make([]string, 0, len(s.SkippedByReason))
	for r := range s.SkippedByReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(w, "  %s: %d\n", r, s.SkippedByReason[core.SkipReason(r)])
	}
}

// filterFlags are the listing flags shared by list and report.
type filterFlags struct {
	owner    string
	importID string
	limit    int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner whose entries to read (required)")
	cmd.Flags().StringVar(&f.importID, "import", "", "only entries created by this import")
	_ = cmd.MarkFlagRequired("owner")
}

func (f *filterFlags) filter() entry.ListFilter {
	return entry.ListFilter{Owner: f.owner, ImportID: f.importID, Limit: f.limit}
}

func newListCommand(a *app) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.service.ListEntries(cmd.Context(), flags.filter())
			if err != nil {
				return userError(err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "DATE\tTYPE\tDESCRIPTION\tAMOUNT\t")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
					e.DateString(), e.Kind, e.Description,
					entry.FormatFloat(e.Amount, a.cfg.Display.Currency))
			}
			return tw.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum entries to show (0 for all)")

	return cmd
}

func newReportCommand(a *app) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show inflow, outflow and net totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			totals, err := a.service.Report(cmd.Context(), flags.filter())
			if err != nil {
				return userError(err)
			}

			currency := a.cfg.Display.Currency
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "entries\t%d\n", totals.Count)
			fmt.Fprintf(tw, "inflow\t%s\n", entry.FormatAmount(totals.Inflow, currency))
			fmt.Fprintf(tw, "outflow\t%s\n", entry.FormatAmount(totals.Outflow, currency))
			fmt.Fprintf(tw, "net\t%s\n", entry.FormatAmount(totals.Net, currency))
			return tw.Flush()
		},
	}

	flags.register(cmd)

	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	var owner string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent imports and submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.service.History(cmd.Context(), owner, limit)
			if err != nil {
				return userError(err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tACTION\tSHEET\tCREATED\tSKIPPED\tIMPORT")
			for _, e := range history {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Action, e.Sheet,
					e.Created, e.Skipped, e.ImportID)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner whose activity to show (required)")
	cmd.Flags().IntVar(&limit, "limit", core.DefaultHistoryLimit, "maximum rows to show")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
