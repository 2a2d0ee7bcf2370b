// Package cli implements the nftgen command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/setanarut/nftgen"
	"github.com/setanarut/nftgen/internal/config"
	"github.com/setanarut/nftgen/internal/ctxlog"
	"github.com/setanarut/nftgen/internal/logging"
	"github.com/setanarut/nftgen/utils"
)

// ExitError is an error that carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// state is shared by all subcommands once the root's pre-run has resolved
// configuration and the logger.
type state struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

// Execute runs the command line with args and returns the first error.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	st := &state{out: stdout}
	var (
		layersDir string
		order     string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:           "nftgen",
		Short:         "Layered collectible generator and chat bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			flags := cmd.Flags()
			if flags.Changed("layers") {
				cfg.LayersDir = layersDir
			}
			if flags.Changed("order") {
				cfg.LayerOrder = strings.Split(order, ",")
				for i := range cfg.LayerOrder {
					cfg.LayerOrder[i] = strings.TrimSpace(cfg.LayerOrder[i])
				}
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = strings.ToLower(logLevel)
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = strings.ToLower(logFormat)
			}
			if err := cfg.Validate(); err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}

			st.cfg = cfg
			st.logger = logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), st.logger))
			st.logger.Debug("Configuration resolved.", "layers", cfg.LayersDir, "order", cfg.LayerOrder)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pf := cmd.PersistentFlags()
	pf.StringVar(&layersDir, "layers", "", "layer directory root (env NFTGEN_LAYERS_DIR)")
	pf.StringVar(&order, "order", "", "comma-separated bottom-to-top group order (env NFTGEN_LAYER_ORDER)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (env NFTGEN_LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "log format: text or json (env NFTGEN_LOG_FORMAT)")

	cmd.AddCommand(
		newGenerateCmd(st),
		newServeCmd(st),
		newFetchCmd(st),
		newStatsCmd(st),
		newInspectCmd(st),
	)
	return cmd
}

// loadCatalog loads the configured layer tree; failures are startup errors.
func (st *state) loadCatalog(ctx context.Context) (*nftgen.Catalog, error) {
	catalog, err := nftgen.LoadCatalog(ctx, st.cfg.LayersDir, st.cfg.LayerOrder)
	if err != nil {
		return nil, err
	}
	if st.cfg.StrictDimensions {
		if err := catalog.CheckDimensions(); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

func (st *state) builderOptions() nftgen.Options {
	opt := nftgen.DefaultOptions()
	opt.PaletteSize = st.cfg.PaletteSize
	// Validated in the pre-run.
	opt.PaletteMethod, _ = utils.ParsePaletteMethod(st.cfg.PaletteMethod)
	return opt
}
