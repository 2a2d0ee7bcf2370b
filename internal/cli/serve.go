package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/setanarut/nftgen"
	"github.com/setanarut/nftgen/internal/chat"
	"github.com/setanarut/nftgen/internal/ctxlog"
	"github.com/setanarut/nftgen/internal/history"
)

// logSender stands in for the Telegram client when no token is configured,
// so the HTTP endpoints stay usable in development.
type logSender struct{}

func (logSender) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	ctxlog.FromContext(ctx).Warn("No TELEGRAM_TOKEN set, dropping reply.", "chat_id", chatID, "bytes", len(png))
	return nil
}

func newServeCmd(st *state) *cobra.Command {
	var (
		addr  string
		fetch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat bot webhook and HTTP endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := ctxlog.FromContext(ctx)
			if !cmd.Flags().Changed("addr") {
				addr = st.cfg.Addr
			}

			if fetch {
				if _, err := st.fetchLayers(ctx); err != nil {
					return err
				}
			}
			catalog, err := st.loadCatalog(ctx)
			if err != nil {
				return err
			}

			svc := &chat.Service{
				Builder:      nftgen.NewBuilder(catalog, st.builderOptions()),
				Seeds:        nftgen.NewSeedSequence(st.cfg.Seed),
				Trigger:      chat.NewTrigger(st.cfg.Triggers...),
				IgnoreBefore: st.cfg.IgnoreBefore,
				Sender:       logSender{},
			}
			if st.cfg.TelegramToken != "" {
				svc.Sender = chat.NewTelegramClient(st.cfg.TelegramToken, st.cfg.TelegramAPI)
			}

			var ledger chat.Ledger
			if st.cfg.HistoryDB != "" {
				store, err := history.Open(ctx, st.cfg.HistoryDB)
				if err != nil {
					return err
				}
				defer store.Close()
				svc.Recorder = store
				ledger = store
			}

			logger.Info("Starting bot.", "groups", catalog.Len(), "triggers", st.cfg.Triggers)
			return chat.NewServer(logger, svc, ledger, st.cfg.WebhookSecret).ListenAndServe(ctx, addr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "listen address (env NFTGEN_ADDR)")
	f.BoolVar(&fetch, "fetch", false, "download the layer tree from S3 before loading")
	return cmd
}
