// Package app assembles the application components. The cmd layer calls
// Setup to get a wired core (store, retrieval, generation) and
// ConnectDiscord to add the platform-facing pieces on top.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"

	"github.com/guildsage/guildsage/internal/bot"
	"github.com/guildsage/guildsage/internal/chat"
	"github.com/guildsage/guildsage/internal/collector"
	"github.com/guildsage/guildsage/internal/config"
	"github.com/guildsage/guildsage/internal/indexer"
	"github.com/guildsage/guildsage/internal/knowledge"
	"github.com/guildsage/guildsage/internal/platform"
	"github.com/guildsage/guildsage/internal/processor"
)

// App holds the wired core components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	Store     *knowledge.Store
	Processor *processor.Processor
	Builder   *chat.ContextBuilder
	Responder *chat.Responder
}

// Setup initializes the AI provider and the vector store. The returned
// cleanup releases the store's data-directory lock.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, func(), error) {
	if err := cfg.RequireGeminiAPIKey(); err != nil {
		return nil, nil, err
	}

	g, err := provideGenkit(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, nil, fmt.Errorf("looking up embedder %q", cfg.EmbedderModel)
	}

	store, err := knowledge.New(knowledge.Config{
		Path:       cfg.DataDir,
		Collection: cfg.CollectionName,
		Compress:   true,
	}, embedder, logger.With("component", "knowledge"))
	if err != nil {
		return nil, nil, fmt.Errorf("initializing vector store: %w", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing vector store", "error", err)
		}
	}

	return &App{
		Config:    cfg,
		Logger:    logger,
		Genkit:    g,
		Embedder:  embedder,
		Store:     store,
		Processor: processor.New(cfg.Indexing.ChunkSize, logger.With("component", "processor")),
		Builder:   chat.NewContextBuilder(store, cfg.Retrieval.TopK, logger.With("component", "chat")),
		Responder: chat.NewResponder(g, cfg.ModelName, logger.With("component", "responder")),
	}, cleanup, nil
}

// provideGenkit initializes Genkit with the Gemini provider.
func provideGenkit(ctx context.Context, cfg *config.Config) (*genkit.Genkit, error) {
	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.GeminiAPIKey}),
	)
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}

	return g, nil
}

// Discord holds the platform-facing components layered on top of the core.
type Discord struct {
	Session     *discordgo.Session
	Client      *platform.DiscordClient
	Collector   *collector.Collector
	Coordinator *indexer.Coordinator
	Bot         *bot.Bot
}

// ConnectDiscord creates the Discord session, collector and coordinator. The
// session is not opened; bot.Run does that.
func (a *App) ConnectDiscord() (*Discord, error) {
	if err := a.Config.RequireDiscordToken(); err != nil {
		return nil, err
	}

	session, err := discordgo.New("Bot " + a.Config.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	client := platform.NewDiscordClient(session, a.Logger.With("component", "platform"))

	var limiter *rate.Limiter
	if delay := a.Config.Indexing.RateLimitDelay; delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	coll := collector.New(client, client, collector.Config{
		MaxPerRequest: a.Config.Indexing.MaxMessagesPerRequest,
		Limiter:       limiter,
	}, a.Logger.With("component", "collector"))

	coordinator := indexer.New(coll, a.Processor, a.Store,
		a.Config.Indexing.BatchSize, a.Logger.With("component", "indexer"))

	b := bot.New(session, a.Config, coordinator, a.Store, a.Builder, a.Responder,
		a.Logger.With("component", "bot"))

	return &Discord{
		Session:     session,
		Client:      client,
		Collector:   coll,
		Coordinator: coordinator,
		Bot:         b,
	}, nil
}
