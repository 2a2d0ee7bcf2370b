package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/setanarut/nftgen"
	"github.com/setanarut/nftgen/internal/ctxlog"
	"github.com/setanarut/nftgen/internal/history"
)

// manifestLine is one line of the traits.jsonl written next to the images.
type manifestLine struct {
	File    string         `json:"file"`
	Seed    int64          `json:"seed"`
	Traits  []nftgen.Trait `json:"traits"`
	Palette []string       `json:"palette,omitempty"`
}

func newGenerateCmd(st *state) *cobra.Command {
	var (
		count  int
		outDir string
		seed   int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write generated collectibles as PNG files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			logger := ctxlog.FromContext(ctx)
			if count < 1 {
				return &ExitError{Code: 2, Message: "count must be at least 1"}
			}
			if !cmd.Flags().Changed("seed") {
				seed = st.cfg.Seed
			}

			catalog, err := st.loadCatalog(ctx)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			// Images restart at 0001.png, so the manifest starts over with them.
			manifest, err := os.OpenFile(filepath.Join(outDir, "traits.jsonl"), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
			defer manifest.Close()

			var store *history.Store
			if st.cfg.HistoryDB != "" {
				if store, err = history.Open(ctx, st.cfg.HistoryDB); err != nil {
					return err
				}
				defer store.Close()
			}

			builder := nftgen.NewBuilder(catalog, st.builderOptions())
			seeds := nftgen.NewSeedSequence(seed)
			enc := json.NewEncoder(manifest)
			for i := range count {
				s := seeds.Next()
				rng, _ := nftgen.NewRand(s)
				res, err := builder.Build(rng)
				if err != nil {
					return err
				}
				name := fmt.Sprintf("%04d.png", i+1)
				if err := saveResult(res, filepath.Join(outDir, name)); err != nil {
					return err
				}
				if err := enc.Encode(manifestLine{File: name, Seed: s, Traits: res.Traits, Palette: res.HexPalette()}); err != nil {
					return err
				}
				if store != nil {
					rec := history.Record{Source: "cli", Seed: s, Traits: res.Traits, Palette: res.HexPalette()}
					if _, err := store.Add(ctx, rec); err != nil {
						return err
					}
				}
				logger.Info("Generated collectible.", "file", name, "seed", s, "traits", nftgen.FormatTraits(res.Traits))
			}
			fmt.Fprintf(st.out, "wrote %d collectible(s) to %s\n", count, outDir)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&count, "count", "n", 1, "number of collectibles to generate")
	f.StringVarP(&outDir, "out", "o", "out", "output directory")
	f.Int64Var(&seed, "seed", 0, "base seed; 0 seeds from the clock (env NFTGEN_SEED)")
	return cmd
}

func saveResult(res *nftgen.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := res.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
