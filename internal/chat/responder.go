package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/guildsage/guildsage/internal/knowledge"
)

// maxContextDocs caps how many retrieved documents are inlined into the
// prompt.
const maxContextDocs = 3

const systemPrompt = "You are a helpful assistant that answers questions based on Discord server content and general knowledge."

// Responder generates answers from retrieval context via Genkit.
type Responder struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewResponder creates a Responder using the given generation model.
func NewResponder(g *genkit.Genkit, modelName string, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Responder{
		g:         g,
		modelName: modelName,
		logger:    logger,
	}
}

// Respond answers the query using the retrieval context.
func (r *Responder) Respond(ctx context.Context, rc Context) (string, error) {
	prompt := buildPrompt(rc.Query, rc.RelevantDocs)

	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithPrompt(prompt),
	}
	if r.modelName != "" {
		opts = append(opts, ai.WithModelName("googleai/"+r.modelName))
	}

	response, err := genkit.Generate(ctx, r.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generating response: %w", err)
	}

	return strings.TrimSpace(response.Text()), nil
}

// buildPrompt assembles a context-aware prompt. Without context the model is
// asked to answer from general knowledge.
func buildPrompt(query string, docs []knowledge.Result) string {
	if len(docs) == 0 {
		return fmt.Sprintf("User question: %s\n\nPlease answer based on your general knowledge.", query)
	}

	var sb strings.Builder
	sb.WriteString("You have access to the following context from the Discord server. ")
	sb.WriteString("Use it to answer the user's question; if it doesn't contain relevant information, use your general knowledge.\n\n")
	sb.WriteString("Context from Discord server:\n")

	for i, doc := range docs {
		if i >= maxContextDocs {
			break
		}

		author := metadataOr(doc.Document.Metadata, "author_name", "Unknown")
		channel := metadataOr(doc.Document.Metadata, "channel_name", "Unknown")
		timestamp := metadataOr(doc.Document.Metadata, "timestamp", "Unknown")

		fmt.Fprintf(&sb, "\nMessage %d (from %s in #%s at %s):\n%s\n",
			i+1, author, channel, timestamp, doc.Document.Content)
	}

	fmt.Fprintf(&sb, "\nUser question: %s\n\nPlease provide a helpful and accurate response based on the context above.", query)
	return sb.String()
}

// FormatSearchResults renders search results for display in chat, truncating
// long content.
func FormatSearchResults(results []knowledge.Result) string {
	if len(results) == 0 {
		return "No relevant content found in the server."
	}

	var parts []string
	for i, result := range results {
		if i >= maxContextDocs {
			break
		}

		author := metadataOr(result.Document.Metadata, "author_name", "Unknown")
		channel := metadataOr(result.Document.Metadata, "channel_name", "Unknown")
		timestamp := metadataOr(result.Document.Metadata, "timestamp", "Unknown")

		content := result.Document.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}

		parts = append(parts, fmt.Sprintf("**%d. From %s in #%s (%s)**\n%s",
			i+1, author, channel, timestamp, content))
	}

	return strings.Join(parts, "\n\n")
}

func metadataOr(metadata map[string]string, key, fallback string) string {
	if v, ok := metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}
