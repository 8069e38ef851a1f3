// Package collector fetches message history with pagination and rate limiting.
//
// Pages are fetched most-recent-first using a "before" cursor (the ID of the
// last message of the previous page). A token-bucket limiter spaces page
// requests so a long collection run doesn't hammer the platform API.
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/guildsage/guildsage/internal/platform"
)

// CollectError reports a failed collection run. Partially collected messages
// are discarded; the caller decides whether to retry.
type CollectError struct {
	// Source identifies what was being collected (a channel or guild ID).
	Source string
	Err    error
}

func (e *CollectError) Error() string {
	return fmt.Sprintf("collecting messages from %s: %v", e.Source, e.Err)
}

func (e *CollectError) Unwrap() error { return e.Err }

// Config controls pagination and rate limiting.
type Config struct {
	// MaxPerRequest caps the size of one history page.
	MaxPerRequest int

	// Limiter spaces page requests. nil disables rate limiting (tests).
	Limiter *rate.Limiter
}

// Collector fetches message history through a HistoryProvider, one page at a
// time, waiting on the limiter between pages.
//
// Collector is safe for concurrent use; the limiter is shared across
// concurrent collections so the aggregate request rate stays bounded.
type Collector struct {
	history  platform.HistoryProvider
	channels platform.ChannelLister
	cfg      Config
	logger   *slog.Logger
}

// New creates a Collector. channels may be nil when guild-wide collection is
// not needed.
func New(history platform.HistoryProvider, channels platform.ChannelLister, cfg Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}

	return &Collector{
		history:  history,
		channels: channels,
		cfg:      cfg,
		logger:   logger,
	}
}

// Collect fetches the channel's history, most-recent-first. limit <= 0 means
// the whole history. Any page failure aborts the run and returns a
// *CollectError; nothing collected so far is returned.
func (c *Collector) Collect(ctx context.Context, channelID string, limit int) ([]platform.Message, error) {
	var messages []platform.Message

	it := c.Pages(channelID, limit)
	for {
		page, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		messages = append(messages, page...)

		c.logger.Info("collected message page",
			"channel_id", channelID,
			"page_size", len(page),
			"total", len(messages))
	}

	return messages, nil
}

// CollectGuild fetches history from every text channel of the guild and
// concatenates the per-channel results. limitPerChannel <= 0 means the whole
// history of each channel.
func (c *Collector) CollectGuild(ctx context.Context, guildID string, limitPerChannel int) ([]platform.Message, error) {
	if c.channels == nil {
		return nil, &CollectError{Source: guildID, Err: fmt.Errorf("no channel lister configured")}
	}

	channels, err := c.channels.ListChannels(ctx, guildID)
	if err != nil {
		return nil, &CollectError{Source: guildID, Err: err}
	}

	c.logger.Info("collecting guild messages", "guild_id", guildID, "channels", len(channels))

	var all []platform.Message
	for _, ch := range channels {
		messages, err := c.Collect(ctx, ch.ID, limitPerChannel)
		if err != nil {
			return nil, err
		}
		all = append(all, messages...)

		c.logger.Info("collected channel",
			"channel_id", ch.ID,
			"channel_name", ch.Name,
			"messages", len(messages))
	}

	c.logger.Info("guild collection complete", "guild_id", guildID, "messages", len(all))
	return all, nil
}

// Pages returns a lazy page iterator for the channel's history. It lets a
// caller stream pages downstream without buffering the whole history.
func (c *Collector) Pages(channelID string, limit int) *PageIterator {
	return &PageIterator{c: c, channelID: channelID, limit: limit}
}

// PageIterator yields one history page per Next call. It is not safe for
// concurrent use; create one iterator per consumer.
type PageIterator struct {
	c         *Collector
	channelID string
	limit     int
	before    string
	collected int
	done      bool
}

// Next returns the next page, or (nil, nil) once the history is exhausted.
// The limiter wait happens before each fetch, so the first page is immediate
// and later pages are spaced by the configured delay.
func (it *PageIterator) Next(ctx context.Context) ([]platform.Message, error) {
	if it.done {
		return nil, nil
	}

	fetchLimit := it.c.cfg.MaxPerRequest
	if it.limit > 0 {
		remaining := it.limit - it.collected
		if remaining <= 0 {
			it.done = true
			return nil, nil
		}
		fetchLimit = min(fetchLimit, remaining)
	}

	if it.c.cfg.Limiter != nil {
		if err := it.c.cfg.Limiter.Wait(ctx); err != nil {
			it.done = true
			return nil, &CollectError{Source: it.channelID, Err: err}
		}
	}

	page, err := it.c.history.FetchHistory(ctx, it.channelID, fetchLimit, it.before)
	if err != nil {
		it.done = true
		return nil, &CollectError{Source: it.channelID, Err: err}
	}

	if len(page) == 0 {
		it.done = true
		return nil, nil
	}

	it.collected += len(page)
	it.before = page[len(page)-1].ID
	return page, nil
}

// FilterTextMessages keeps only messages whose content is non-empty after
// trimming whitespace.
func FilterTextMessages(messages []platform.Message) []platform.Message {
	filtered := make([]platform.Message, 0, len(messages))
	for _, m := range messages {
		if strings.TrimSpace(m.Content) != "" {
			filtered = append(filtered, m)
		}
	}
	return filtered
}
