package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/setanarut/nftgen/internal/history"
)

func newStatsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print how often each trait has been generated",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if st.cfg.HistoryDB == "" {
				return &ExitError{Code: 2, Message: "NFTGEN_HISTORY_DB is not set"}
			}
			store, err := history.Open(ctx, st.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			total, err := store.Count(ctx)
			if err != nil {
				return err
			}
			counts, err := store.TraitCounts(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(st.out, "%d generation(s)\n", total)
			tw := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tTRAIT\tCOUNT\tSHARE")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%.1f%%\n", c.Group, c.Trait, c.Count, 100*float64(c.Count)/float64(max(total, 1)))
			}
			return tw.Flush()
		},
	}
}
