// Package platform defines the boundary to the source chat platform.
//
// The indexing pipeline consumes message history through the small
// HistoryProvider and ChannelLister interfaces defined here; the Discord
// implementation lives in discord.go. Everything above this package works
// against these interfaces, which keeps the pipeline testable without a
// live Discord connection.
package platform

import (
	"context"
	"fmt"
	"time"
)

// Channel identifies one text channel within a guild.
type Channel struct {
	ID      string
	Name    string
	GuildID string
}

// Message is one immutable message snapshot fetched from the platform.
// It is never mutated after ingestion.
type Message struct {
	ID          string
	AuthorID    string
	AuthorName  string
	ChannelID   string
	ChannelName string
	GuildID     string
	GuildName   string
	CreatedAt   time.Time
	Content     string
}

// ValidationError reports a malformed message rejected at the ingestion
// boundary. Malformed items are rejected outright rather than patched
// field-by-field.
type ValidationError struct {
	Field string
	ID    string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid message: missing %s", e.Field)
	}
	return fmt.Sprintf("invalid message %s: missing %s", e.ID, e.Field)
}

// Validate checks that the fields required by the indexing pipeline are set.
func (m Message) Validate() error {
	if m.ID == "" {
		return &ValidationError{Field: "id"}
	}
	if m.ChannelID == "" {
		return &ValidationError{Field: "channel_id", ID: m.ID}
	}
	return nil
}

// HistoryProvider fetches paged message history for a channel,
// most-recent-first. beforeID is the pagination cursor: the ID of the last
// message of the previous page, or empty for the most recent page.
type HistoryProvider interface {
	FetchHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]Message, error)
}

// ChannelLister enumerates the text channels of a guild.
type ChannelLister interface {
	ListChannels(ctx context.Context, guildID string) ([]Channel, error)
}
