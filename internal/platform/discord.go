package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// DiscordClient implements HistoryProvider and ChannelLister on top of a
// discordgo session. Channel and guild names are cached to avoid one REST
// round trip per message.
//
// DiscordClient is safe for concurrent use.
type DiscordClient struct {
	session *discordgo.Session
	logger  *slog.Logger

	mu           sync.Mutex
	channelNames map[string]string
	guildNames   map[string]string
}

// NewDiscordClient wraps an open (or openable) discordgo session.
func NewDiscordClient(session *discordgo.Session, logger *slog.Logger) *DiscordClient {
	if logger == nil {
		logger = slog.Default()
	}

	return &DiscordClient{
		session:      session,
		logger:       logger,
		channelNames: make(map[string]string),
		guildNames:   make(map[string]string),
	}
}

// ListChannels returns the guild's text channels.
func (d *DiscordClient) ListChannels(ctx context.Context, guildID string) ([]Channel, error) {
	raw, err := d.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("listing channels for guild %s: %w", guildID, err)
	}

	channels := make([]Channel, 0, len(raw))
	for _, ch := range raw {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		d.cacheChannelName(ch.ID, ch.Name)
		channels = append(channels, Channel{
			ID:      ch.ID,
			Name:    ch.Name,
			GuildID: guildID,
		})
	}

	return channels, nil
}

// FetchHistory returns one page of messages, most-recent-first.
func (d *DiscordClient) FetchHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]Message, error) {
	raw, err := d.session.ChannelMessages(channelID, limit, beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching history for channel %s: %w", channelID, err)
	}

	messages := make([]Message, 0, len(raw))
	for _, m := range raw {
		msg := d.convert(ctx, m, channelID)
		if err := msg.Validate(); err != nil {
			d.logger.Warn("dropping malformed message", "channel_id", channelID, "error", err)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// convert maps a discordgo message to the platform Message snapshot.
func (d *DiscordClient) convert(ctx context.Context, m *discordgo.Message, channelID string) Message {
	msg := Message{
		ID:        m.ID,
		ChannelID: channelID,
		GuildID:   m.GuildID,
		CreatedAt: m.Timestamp,
		Content:   m.Content,
	}

	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.GlobalName
		if msg.AuthorName == "" {
			msg.AuthorName = m.Author.Username
		}
	}

	msg.ChannelName = d.channelName(ctx, channelID)
	if m.GuildID != "" {
		msg.GuildName = d.guildName(ctx, m.GuildID)
	}

	return msg
}

func (d *DiscordClient) cacheChannelName(id, name string) {
	d.mu.Lock()
	d.channelNames[id] = name
	d.mu.Unlock()
}

func (d *DiscordClient) channelName(ctx context.Context, id string) string {
	d.mu.Lock()
	name, ok := d.channelNames[id]
	d.mu.Unlock()
	if ok {
		return name
	}

	ch, err := d.session.Channel(id, discordgo.WithContext(ctx))
	if err != nil {
		d.logger.Debug("resolving channel name failed", "channel_id", id, "error", err)
		return ""
	}

	d.cacheChannelName(id, ch.Name)
	return ch.Name
}

func (d *DiscordClient) guildName(ctx context.Context, id string) string {
	d.mu.Lock()
	name, ok := d.guildNames[id]
	d.mu.Unlock()
	if ok {
		return name
	}

	g, err := d.session.Guild(id, discordgo.WithContext(ctx))
	if err != nil {
		d.logger.Debug("resolving guild name failed", "guild_id", id, "error", err)
		return ""
	}

	d.mu.Lock()
	d.guildNames[id] = g.Name
	d.mu.Unlock()
	return g.Name
}
