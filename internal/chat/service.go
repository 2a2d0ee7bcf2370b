package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/setanarut/nftgen"
	"github.com/setanarut/nftgen/internal/ctxlog"
	"github.com/setanarut/nftgen/internal/history"
)

// Sender delivers a generated image to a chat.
type Sender interface {
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error
}

// Recorder stores generations; *history.Store implements it.
type Recorder interface {
	Add(ctx context.Context, rec history.Record) (string, error)
}

// Generation is one finished request: the result plus what is needed to
// replay it.
type Generation struct {
	ID     string
	Seed   int64
	Result *nftgen.Result
	PNG    []byte
}

// Service generates collectibles for chat and HTTP requests.
type Service struct {
	Builder *nftgen.Builder
	Seeds   *nftgen.SeedSequence
	Trigger *Trigger
	// Messages dated before IgnoreBefore are dropped, so a restarted bot does
	// not answer a backlog.
	IgnoreBefore time.Time
	Sender       Sender
	// Recorder is optional.
	Recorder Recorder
}

// Generate builds one collectible from seed (0 takes the next seed of the
// sequence), encodes it and records it.
func (s *Service) Generate(ctx context.Context, seed int64, source string) (*Generation, error) {
	logger := ctxlog.FromContext(ctx)
	if seed == 0 {
		seed = s.Seeds.Next()
	}
	rng, _ := nftgen.NewRand(seed)

	res, err := s.Builder.Build(rng)
	if err != nil {
		return nil, err
	}
	png, err := res.PNG()
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	gen := &Generation{Seed: seed, Result: res, PNG: png}

	if s.Recorder != nil {
		id, err := s.Recorder.Add(ctx, history.Record{
			Source:  source,
			Seed:    seed,
			Traits:  res.Traits,
			Palette: res.HexPalette(),
		})
		if err != nil {
			// Bookkeeping must not cost the user their image.
			logger.Error("Failed to record generation.", "error", err)
		}
		gen.ID = id
	}
	logger.Info("Generated collectible.", "seed", seed, "traits", nftgen.FormatTraits(res.Traits), "source", source)
	return gen, nil
}

// HandleMessage replies with a fresh collectible when msg is a trigger. It
// reports whether the message was answered.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (bool, error) {
	logger := ctxlog.FromContext(ctx).With("chat_id", msg.ChatID, "message_id", msg.ID)
	if !s.IgnoreBefore.IsZero() && msg.Date.Before(s.IgnoreBefore) {
		logger.Debug("Ignoring message older than cutoff.", "date", msg.Date)
		return false, nil
	}
	if !s.Trigger.Matches(msg.Text) {
		return false, nil
	}
	from := msg.From
	if from == "" {
		from = "anon"
	}
	logger.Info("Received trigger message.", "from", from)

	gen, err := s.Generate(ctx, 0, "chat")
	if err != nil {
		return false, err
	}
	if err := s.Sender.SendPhoto(ctx, msg.ChatID, gen.PNG, Caption(gen)); err != nil {
		return false, fmt.Errorf("send photo: %w", err)
	}
	return true, nil
}

// Caption lists the traits, one per line.
func Caption(gen *Generation) string {
	lines := make([]string, len(gen.Result.Traits))
	for i, t := range gen.Result.Traits {
		lines[i] = t.Group + ": " + t.Name
	}
	return strings.Join(lines, "\n")
}
