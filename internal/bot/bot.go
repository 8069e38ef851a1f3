// Package bot is the Discord-facing glue: it routes prefix commands to the
// indexing and retrieval core and answers free-form messages with retrieved
// context. All pipeline logic lives below this package.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/guildsage/guildsage/internal/chat"
	"github.com/guildsage/guildsage/internal/config"
	"github.com/guildsage/guildsage/internal/indexer"
	"github.com/guildsage/guildsage/internal/knowledge"
)

// IndexController starts indexing jobs and reports their state. Implemented
// by indexer.Coordinator.
type IndexController interface {
	Start(ctx context.Context, guildID, channelID string) (bool, string)
	IsRunning() bool
	Progress() indexer.Progress
}

// KnowledgeStore exposes the store operations the command surface needs.
// Implemented by knowledge.Store.
type KnowledgeStore interface {
	Search(ctx context.Context, query string, nResults int, filter map[string]string) ([]knowledge.Result, error)
	Stats() knowledge.Stats
	Clear(ctx context.Context) error
}

// Responder answers a question given retrieval context. Implemented by
// chat.Responder.
type Responder interface {
	Respond(ctx context.Context, rc chat.Context) (string, error)
}

// Bot wires the Discord session to the core components.
type Bot struct {
	session     *discordgo.Session
	cfg         *config.Config
	coordinator IndexController
	store       KnowledgeStore
	builder     *chat.ContextBuilder
	responder   Responder
	logger      *slog.Logger
}

// New creates a Bot on an unopened discordgo session.
func New(session *discordgo.Session, cfg *config.Config, coordinator IndexController, store KnowledgeStore, builder *chat.ContextBuilder, responder Responder, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bot{
		session:     session,
		cfg:         cfg,
		coordinator: coordinator,
		store:       store,
		builder:     builder,
		responder:   responder,
		logger:      logger,
	}
}

// Run opens the gateway connection and serves until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	b.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	b.session.AddHandler(b.handleMessage)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening Discord gateway: %w", err)
	}
	defer func() {
		if err := b.session.Close(); err != nil {
			b.logger.Warn("closing Discord session", "error", err)
		}
	}()

	b.logger.Info("bot connected", "user", b.session.State.User.Username)

	<-ctx.Done()
	return ctx.Err()
}

// handleMessage routes one incoming message: prefix commands first, free-form
// chat otherwise.
func (b *Bot) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	ctx := context.Background()

	if strings.HasPrefix(m.Content, b.cfg.CommandPrefix) {
		b.handleCommand(ctx, m)
		return
	}

	b.handleChat(ctx, m)
}

func (b *Bot) handleCommand(ctx context.Context, m *discordgo.MessageCreate) {
	trimmed := strings.TrimPrefix(m.Content, b.cfg.CommandPrefix)
	name, args := splitCommand(trimmed)

	switch name {
	case "index":
		b.cmdIndex(ctx, m, "")
	case "index-channel":
		b.cmdIndex(ctx, m, m.ChannelID)
	case "index-status":
		b.cmdIndexStatus(m)
	case "search":
		b.cmdSearch(ctx, m, args)
	case "stats":
		b.cmdStats(m)
	case "clear":
		b.cmdClear(ctx, m)
	default:
		b.reply(m, fmt.Sprintf("Unknown command: %s%s", b.cfg.CommandPrefix, name))
	}
}

// splitCommand separates the command name from its argument string.
func splitCommand(s string) (name, args string) {
	name, args, _ = strings.Cut(strings.TrimSpace(s), " ")
	return strings.ToLower(name), strings.TrimSpace(args)
}

func (b *Bot) cmdIndex(ctx context.Context, m *discordgo.MessageCreate, channelID string) {
	if !b.cfg.IsAdmin(m.Author.ID) {
		b.reply(m, "Permission denied: indexing commands are admin-only.")
		return
	}
	if m.GuildID == "" {
		b.reply(m, "Indexing commands only work inside a server.")
		return
	}
	if b.coordinator.IsRunning() {
		b.reply(m, "Indexing is already in progress. Please wait for it to complete.")
		return
	}

	b.reply(m, "Starting indexing... This may take a while.")

	// Indexing runs in the handler's goroutine deliberately: discordgo
	// dispatches handlers concurrently, and the coordinator's lock rejects
	// overlapping jobs.
	ok, msg := b.coordinator.Start(ctx, m.GuildID, channelID)
	if !ok {
		b.reply(m, msg)
		return
	}

	stats := b.store.Stats()
	b.reply(m, fmt.Sprintf("%s\nTotal documents indexed: %d", msg, stats.TotalDocuments))
}

func (b *Bot) cmdIndexStatus(m *discordgo.MessageCreate) {
	if !b.coordinator.IsRunning() {
		b.reply(m, "No indexing job is running.")
		return
	}

	p := b.coordinator.Progress()
	b.reply(m, fmt.Sprintf("Indexing in progress: %s", p.Status))
}

func (b *Bot) cmdSearch(ctx context.Context, m *discordgo.MessageCreate, query string) {
	if query == "" {
		b.reply(m, fmt.Sprintf("Usage: %ssearch <query>", b.cfg.CommandPrefix))
		return
	}

	rc, err := b.builder.BuildContext(ctx, query, "")
	if err != nil {
		b.logger.Error("search failed", "error", err)
		b.reply(m, "Search is unavailable right now. Please try again later.")
		return
	}

	b.reply(m, chat.FormatSearchResults(rc.RelevantDocs))
}

func (b *Bot) cmdStats(m *discordgo.MessageCreate) {
	stats := b.store.Stats()
	b.reply(m, fmt.Sprintf("Collection **%s** holds %d documents.", stats.CollectionName, stats.TotalDocuments))
}

func (b *Bot) cmdClear(ctx context.Context, m *discordgo.MessageCreate) {
	if !b.cfg.IsAdmin(m.Author.ID) {
		b.reply(m, "Permission denied: clearing the index is admin-only.")
		return
	}
	if b.coordinator.IsRunning() {
		b.reply(m, "Indexing is in progress; try again once it completes.")
		return
	}

	if err := b.store.Clear(ctx); err != nil {
		b.logger.Error("clearing index failed", "error", err)
		b.reply(m, "Failed to clear the index.")
		return
	}

	b.reply(m, "Cleared the index.")
}

// handleChat answers a free-form message with retrieved context. Retrieval
// failures degrade to a general-knowledge answer rather than silence.
func (b *Bot) handleChat(ctx context.Context, m *discordgo.MessageCreate) {
	rc, err := b.builder.BuildContext(ctx, m.Content, m.ChannelID)
	if err != nil {
		b.logger.Error("building retrieval context failed", "error", err)
		rc = chat.Context{Query: m.Content}
	}

	answer, err := b.responder.Respond(ctx, rc)
	if err != nil {
		b.logger.Error("generating response failed", "error", err)
		b.reply(m, "I'm sorry, I encountered an error while processing your message.")
		return
	}

	b.reply(m, answer)
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	if _, err := b.session.ChannelMessageSend(m.ChannelID, content); err != nil {
		b.logger.Warn("sending reply failed", "channel_id", m.ChannelID, "error", err)
	}
}
