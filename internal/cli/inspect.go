package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/setanarut/nftgen"
)

func newInspectCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "List groups, options, weights and selection odds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := st.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tGROUP\tTRAIT\tWEIGHT\tODDS")
			combos := 1
			for _, g := range catalog.Groups() {
				p := nftgen.Probabilities(&g)
				for i, o := range g.Options {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%g\t%.2f%%\n", g.Rank, g.Name, o.Name, o.Weight, 100*p[i])
				}
				fmt.Fprintf(tw, "\t%s\t(entropy %.2f bits)\t\t\n", g.Name, nftgen.Entropy(&g))
				combos *= len(g.Options)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(st.out, "%d possible combination(s)\n", combos)
			return nil
		},
	}
}
