package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"vidcorpus/internal/ai"
	"vidcorpus/internal/bot"
	"vidcorpus/internal/config"
	"vidcorpus/internal/fetcher"
	"vidcorpus/internal/identity"
	"vidcorpus/internal/model"
	"vidcorpus/internal/pipeline"
	"vidcorpus/internal/stage"
	"vidcorpus/internal/storage"
	"vidcorpus/internal/syncplan"
	"vidcorpus/internal/transcript"
)

const (
	transcriptTimeout = 30 * time.Second
	wikipediaTimeout  = 10 * time.Second
	listingTimeout    = 30 * time.Second
)

// needs selects the collaborators a command builds.
type needs struct {
	// write takes the single-writer lock.
	write bool
	// transcripts builds the provider chain and fails when none is usable.
	transcripts bool
	// ai fails when the selected AI provider has no key. Without it the AI
	// stages are left unconfigured.
	ai bool
	// upstream installs yt-dlp for listing and captions.
	upstream bool
}

type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    *storage.DB
	orch     *pipeline.Orchestrator
	identity *identity.Resolver
	telegram *bot.Bot
	unlock   func() error
}

func newApp(ctx context.Context, n needs) (*app, error) {
	a := &app{cfg: cfg, log: logger}

	if n.write {
		unlock, err := pipeline.Lock(cfg.LockPath)
		if err != nil {
			return nil, err
		}
		a.unlock = unlock
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.store = store

	if n.upstream {
		ytdlp.MustInstall(ctx, nil)
	}

	tracker := stage.Deps{}
	deps := pipeline.Deps{}

	source := fetcher.NewRouter(map[model.ChannelType]fetcher.Source{
		model.ChannelYouTube: fetcher.NewYouTube(),
		model.ChannelRSS:     fetcher.NewRSS(&http.Client{Timeout: listingTimeout}),
	})
	deps.Source = source
	tracker.Metadata = source

	if n.transcripts {
		resolver, err := newTranscriptResolver(cfg, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		tracker.Transcripts = resolver
	}

	a.identity = identity.New(store, identity.NewWikipedia(&http.Client{Timeout: wikipediaTimeout}), logger)
	tracker.Participants = a.identity
	deps.Identity = a.identity

	if err := cfg.RequireAI(); err == nil {
		gen, err := ai.New(ai.Config{
			Provider:     cfg.AIProvider,
			OpenAIKey:    cfg.OpenAIAPIKey,
			AnthropicKey: cfg.AnthropicAPIKey,
			Model:        cfg.AIModel,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		extractor := ai.NewExtractor(gen, logger)
		tracker.Proposer = extractor
		tracker.Summarizer = ai.NewSummarizer(gen)
		deps.Proposer = extractor
	} else if n.ai {
		a.close()
		return nil, err
	}

	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warn("telegram disabled", "error", err)
		} else {
			a.telegram = b
			deps.Notifier = b
		}
	}

	deps.Tracker = stage.New(store, tracker, logger)
	deps.Planner = syncplan.New(store, syncplan.Options{
		MinDuration:     cfg.MinDuration,
		Limit:           cfg.Limit,
		NewChannelLimit: cfg.NewChannelLimit,
	})
	a.orch = pipeline.New(store, deps, cfg.MaxErrors, logger)
	return a, nil
}

func (a *app) close() {
	if a.telegram != nil {
		a.telegram.Stop()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close database", "error", err)
		}
	}
	if a.unlock != nil {
		if err := a.unlock(); err != nil {
			a.log.Warn("release lock", "error", err)
		}
	}
}

func (a *app) channels() ([]config.TrackedChannel, error) {
	return config.LoadRegistry(a.cfg.ChannelsFile)
}

func openStore(ctx context.Context, c *config.Config) (*storage.DB, error) {
	if c.UsePostgres() {
		store, err := storage.NewPostgres(ctx, storage.PostgresConfig{
			DSN:          c.DatabaseURL,
			SupabaseURL:  c.SupabaseURL,
			Password:     c.SupabasePassword,
			MaxOpenConns: 4,
			ConnMaxLife:  30 * time.Minute,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	}

	if dir := filepath.Dir(c.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	store, err := storage.NewSQLite(c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", c.DatabasePath, err)
	}
	return store, nil
}

func newTranscriptResolver(c *config.Config, log *slog.Logger) (*transcript.Resolver, error) {
	order, err := c.TranscriptOrder()
	if err != nil {
		return nil, err
	}
	providers := []transcript.Provider{transcript.NewCaptions()}
	if c.SupadataAPIKey != "" {
		providers = append(providers, transcript.NewSupadata(&http.Client{Timeout: transcriptTimeout}, c.SupadataAPIKey))
	}
	return transcript.NewResolver(providers, order, c.Language, log), nil
}

// isMissing reports errors that mean the requested record does not exist.
func isMissing(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
