package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/guildsage/guildsage/internal/log"
	"github.com/guildsage/guildsage/internal/platform"
)

// fakeHistory serves fixed per-channel message lists in pages,
// most-recent-first, honoring the before cursor.
type fakeHistory struct {
	messages map[string][]platform.Message

	fetchCalls int
	fetchErr   error
	errOnCall  int // 1-based call number to fail on; 0 disables
}

func (f *fakeHistory) FetchHistory(_ context.Context, channelID string, limit int, beforeID string) ([]platform.Message, error) {
	f.fetchCalls++
	if f.errOnCall > 0 && f.fetchCalls == f.errOnCall {
		return nil, f.fetchErr
	}

	history := f.messages[channelID]

	start := 0
	if beforeID != "" {
		for i, m := range history {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	if start >= len(history) {
		return nil, nil
	}

	end := min(start+limit, len(history))
	return history[start:end], nil
}

type fakeLister struct {
	channels []platform.Channel
	listErr  error
}

func (f *fakeLister) ListChannels(context.Context, string) ([]platform.Channel, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.channels, nil
}

func makeMessages(channelID string, n int) []platform.Message {
	messages := make([]platform.Message, n)
	for i := range messages {
		messages[i] = platform.Message{
			ID:        fmt.Sprintf("%s-m%d", channelID, i+1),
			ChannelID: channelID,
			Content:   fmt.Sprintf("message %d", i+1),
		}
	}
	return messages
}

func TestCollector_Collect_Pagination(t *testing.T) {
	history := &fakeHistory{messages: map[string][]platform.Message{
		"c1": makeMessages("c1", 5),
	}}

	c := New(history, nil, Config{MaxPerRequest: 2}, log.NewNop())

	messages, err := c.Collect(context.Background(), "c1", 5)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}

	// Pages of 2, 2 and 1; the limit is then exhausted without another fetch.
	if history.fetchCalls != 3 {
		t.Errorf("expected 3 fetches, got %d", history.fetchCalls)
	}

	for i, m := range messages {
		want := fmt.Sprintf("c1-m%d", i+1)
		if m.ID != want {
			t.Errorf("message %d ID = %q, want %q", i, m.ID, want)
		}
	}
}

func TestCollector_Collect_WholeHistory(t *testing.T) {
	history := &fakeHistory{messages: map[string][]platform.Message{
		"c1": makeMessages("c1", 5),
	}}

	c := New(history, nil, Config{MaxPerRequest: 2}, log.NewNop())

	messages, err := c.Collect(context.Background(), "c1", 0)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}

	// Without a limit the iterator only stops on an empty page, so one extra
	// fetch happens after the last full page.
	if history.fetchCalls != 4 {
		t.Errorf("expected 4 fetches, got %d", history.fetchCalls)
	}
}

func TestCollector_Collect_FetchError(t *testing.T) {
	fetchErr := errors.New("rate limited by platform")
	history := &fakeHistory{
		messages:  map[string][]platform.Message{"c1": makeMessages("c1", 5)},
		fetchErr:  fetchErr,
		errOnCall: 2,
	}

	c := New(history, nil, Config{MaxPerRequest: 2}, log.NewNop())

	messages, err := c.Collect(context.Background(), "c1", 0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	// Partial results are discarded on failure.
	if messages != nil {
		t.Errorf("expected no messages on failure, got %d", len(messages))
	}

	var collectErr *CollectError
	if !errors.As(err, &collectErr) {
		t.Fatalf("expected *CollectError, got %T", err)
	}
	if collectErr.Source != "c1" {
		t.Errorf("CollectError.Source = %q, want %q", collectErr.Source, "c1")
	}
	if !errors.Is(err, fetchErr) {
		t.Errorf("error should wrap the fetch error: %v", err)
	}
}

func TestCollector_Collect_RateLimiterSpacesPages(t *testing.T) {
	history := &fakeHistory{messages: map[string][]platform.Message{
		"c1": makeMessages("c1", 6),
	}}

	delay := 20 * time.Millisecond
	c := New(history, nil, Config{
		MaxPerRequest: 2,
		Limiter:       rate.NewLimiter(rate.Every(delay), 1),
	}, log.NewNop())

	start := time.Now()
	if _, err := c.Collect(context.Background(), "c1", 6); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	elapsed := time.Since(start)

	// Three fetches: the first is immediate, the next two wait one delay each.
	if elapsed < 2*delay {
		t.Errorf("expected at least %v of limiter spacing, got %v", 2*delay, elapsed)
	}
}

func TestPageIterator_Next(t *testing.T) {
	history := &fakeHistory{messages: map[string][]platform.Message{
		"c1": makeMessages("c1", 3),
	}}

	c := New(history, nil, Config{MaxPerRequest: 2}, log.NewNop())
	it := c.Pages("c1", 0)
	ctx := context.Background()

	first, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("first Next failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first page size = %d, want 2", len(first))
	}

	second, err := it.Next(ctx)
	if err != nil {
		t.Fatalf("second Next failed: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second page size = %d, want 1", len(second))
	}

	// Exhausted: every further call returns (nil, nil) without fetching.
	for i := 0; i < 2; i++ {
		page, err := it.Next(ctx)
		if err != nil {
			t.Fatalf("Next after exhaustion failed: %v", err)
		}
		if page != nil {
			t.Fatalf("expected nil page after exhaustion, got %d messages", len(page))
		}
	}
	if history.fetchCalls != 3 {
		t.Errorf("expected 3 fetches, got %d", history.fetchCalls)
	}
}

func TestCollector_CollectGuild(t *testing.T) {
	history := &fakeHistory{messages: map[string][]platform.Message{
		"c1": makeMessages("c1", 3),
		"c2": makeMessages("c2", 2),
	}}
	lister := &fakeLister{channels: []platform.Channel{
		{ID: "c1", Name: "general", GuildID: "g1"},
		{ID: "c2", Name: "random", GuildID: "g1"},
	}}

	c := New(history, lister, Config{MaxPerRequest: 10}, log.NewNop())

	messages, err := c.CollectGuild(context.Background(), "g1", 0)
	if err != nil {
		t.Fatalf("CollectGuild failed: %v", err)
	}

	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}

	// Per-channel results are concatenated in channel order.
	if messages[0].ChannelID != "c1" || messages[4].ChannelID != "c2" {
		t.Errorf("unexpected channel order: first %q, last %q",
			messages[0].ChannelID, messages[4].ChannelID)
	}
}

func TestCollector_CollectGuild_ListError(t *testing.T) {
	listErr := errors.New("guild not found")
	lister := &fakeLister{listErr: listErr}

	c := New(&fakeHistory{}, lister, Config{MaxPerRequest: 10}, log.NewNop())

	_, err := c.CollectGuild(context.Background(), "g1", 0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var collectErr *CollectError
	if !errors.As(err, &collectErr) {
		t.Fatalf("expected *CollectError, got %T", err)
	}
	if collectErr.Source != "g1" {
		t.Errorf("CollectError.Source = %q, want %q", collectErr.Source, "g1")
	}
}

func TestCollector_CollectGuild_NoLister(t *testing.T) {
	c := New(&fakeHistory{}, nil, Config{MaxPerRequest: 10}, log.NewNop())

	_, err := c.CollectGuild(context.Background(), "g1", 0)
	if err == nil {
		t.Fatal("expected error when no channel lister is configured")
	}
}

func TestFilterTextMessages(t *testing.T) {
	messages := []platform.Message{
		{ID: "m1", Content: "hello"},
		{ID: "m2", Content: ""},
		{ID: "m3", Content: "   \n\t "},
		{ID: "m4", Content: "world"},
	}

	filtered := FilterTextMessages(messages)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(filtered))
	}
	if filtered[0].ID != "m1" || filtered[1].ID != "m4" {
		t.Errorf("unexpected messages kept: %q, %q", filtered[0].ID, filtered[1].ID)
	}
}
