// Package chat builds retrieval context for answering questions from indexed
// guild content, and generates responses from that context.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guildsage/guildsage/internal/knowledge"
)

// Search scopes. A channel-scoped search filters on channel_id; a
// server-scoped search runs unfiltered over the whole collection.
const (
	ScopeChannel = "channel"
	ScopeServer  = "server"
)

// DefaultTopK is the default number of documents retrieved per query.
const DefaultTopK = 5

// Searcher performs semantic search. Implemented by knowledge.Store.
type Searcher interface {
	Search(ctx context.Context, query string, nResults int, filter map[string]string) ([]knowledge.Result, error)
}

// Context is retrieval context for one question, consumable by a completion
// call.
type Context struct {
	Query           string
	RelevantDocs    []knowledge.Result
	SearchPerformed bool
	SearchScope     string
}

// ContextBuilder wraps vector search into retrieval context.
type ContextBuilder struct {
	store  Searcher
	topK   int
	logger *slog.Logger
}

// NewContextBuilder creates a ContextBuilder. topK <= 0 selects DefaultTopK.
func NewContextBuilder(store Searcher, topK int, logger *slog.Logger) *ContextBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &ContextBuilder{
		store:  store,
		topK:   topK,
		logger: logger,
	}
}

// BuildContext searches for content relevant to the query. A non-empty
// channelID scopes the search to that channel; otherwise the whole server is
// searched.
//
// SearchPerformed is true whenever a search was attempted, even when it
// returned nothing. Search errors propagate so the caller can tell "no
// matches" apart from "search failed".
func (b *ContextBuilder) BuildContext(ctx context.Context, query, channelID string) (Context, error) {
	scope := ScopeServer
	var filter map[string]string
	if channelID != "" {
		scope = ScopeChannel
		filter = map[string]string{"channel_id": channelID}
	}

	result := Context{
		Query:           query,
		SearchPerformed: true,
		SearchScope:     scope,
	}

	docs, err := b.store.Search(ctx, query, b.topK, filter)
	if err != nil {
		return result, fmt.Errorf("searching relevant content: %w", err)
	}

	result.RelevantDocs = docs
	b.logger.Info("built retrieval context",
		"scope", scope,
		"relevant_docs", len(docs))

	return result, nil
}

// Summarize returns a one-line description of the context for display.
func Summarize(c Context) string {
	if len(c.RelevantDocs) == 0 {
		if c.SearchScope == ScopeChannel {
			return "No relevant channel content found for this query."
		}
		return "No relevant server content found for this query."
	}

	if c.SearchScope == ScopeChannel {
		return fmt.Sprintf("Found %d relevant messages from the channel to help answer your question.", len(c.RelevantDocs))
	}
	return fmt.Sprintf("Found %d relevant messages from the server to help answer your question.", len(c.RelevantDocs))
}
