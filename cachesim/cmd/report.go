package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/compcache/datarecording"
	"github.com/sarchlab/compcache/mem/cache/trace"
)

// ReportOptions select the rows of a report.
type ReportOptions struct {
	MissesOnly bool
	Limit      int
	Offset     int
}

var reportOpts ReportOptions

var reportCmd = &cobra.Command{
	Use:   "report <recording.sqlite3>",
	Short: "List the requests stored by run --record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return ListRequests(cmd.Context(), args[0], reportOpts, cmd.OutOrStdout())
	},
}

// ListRequests prints the requests of a recording in issue order.
func ListRequests(
	ctx context.Context,
	filename string,
	opts ReportOptions,
	w io.Writer,
) error {
	if _, err := os.Stat(filename); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	reader := datarecording.NewReader(filename)
	defer reader.Close()

	reader.MapTable(trace.RequestTable, trace.RequestEntry{})

	params := datarecording.QueryParams{
		OrderBy: "StartCycle",
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}

	if opts.MissesOnly {
		params.Where = "Hit = ?"
		params.Args = []any{false}
	}

	rows, total, err := reader.Query(ctx, trace.RequestTable, params)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	fmt.Fprintf(w, "%-24s %-5s %10s %11s %-4s %s\n",
		"ID", "OP", "ADDRESS", "DATA", "HIT", "CYCLES")

	for _, row := range rows {
		e := row.(*trace.RequestEntry)

		hit := "no"
		if e.Hit {
			hit = "yes"
		}

		fmt.Fprintf(w, "%-24s %-5s %#10x %11d %-4s %d-%d\n",
			e.ID, e.Op, e.Address, e.Data, hit, e.StartCycle, e.EndCycle)
	}

	fmt.Fprintf(w, "%d of %d requests\n", len(rows), total)

	return nil
}

func init() {
	reportCmd.Flags().BoolVar(&reportOpts.MissesOnly, "misses", false,
		"Only list requests whose first lookup missed")
	reportCmd.Flags().IntVar(&reportOpts.Limit, "limit", 0,
		"Maximum number of requests to list (0 lists all)")
	reportCmd.Flags().IntVar(&reportOpts.Offset, "offset", 0,
		"Number of requests to skip (needs --limit)")

	rootCmd.AddCommand(reportCmd)
}
