// Package processor turns raw chat messages into cleaned, chunked documents
// ready for embedding and storage.
package processor

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/guildsage/guildsage/internal/knowledge"
	"github.com/guildsage/guildsage/internal/platform"
)

// Markdown delimiters are stripped pair-wise, keeping the inner text.
// Order matters: bold (**) before italic (*), strikethrough (~~) and
// underline (__) as their own pairs.
var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	boldRe          = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe        = regexp.MustCompile(`\*(.*?)\*`)
	codeRe          = regexp.MustCompile("`(.*?)`")
	strikethroughRe = regexp.MustCompile(`~~(.*?)~~`)
	underlineRe     = regexp.MustCompile(`__(.*?)__`)
	urlRe           = regexp.MustCompile(`https?://[^\s]+`)
)

// CleanText normalizes raw message content: whitespace runs collapse to a
// single space, markdown emphasis/code/strikethrough/underline delimiters are
// removed (inner text kept), and URLs are dropped.
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = whitespaceRe.ReplaceAllString(text, " ")

	text = boldRe.ReplaceAllString(text, "$1")
	text = italicRe.ReplaceAllString(text, "$1")
	text = codeRe.ReplaceAllString(text, "$1")
	text = strikethroughRe.ReplaceAllString(text, "$1")
	text = underlineRe.ReplaceAllString(text, "$1")

	text = urlRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

// ChunkText splits text into chunks of at most chunkSize characters using
// greedy word packing. A word is never split across chunks, so a single word
// longer than chunkSize becomes its own oversized chunk. Joining the chunks
// with single spaces reproduces the whitespace-normalized input.
func ChunkText(text string, chunkSize int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	current := ""

	for _, word := range strings.Fields(text) {
		if len(current)+len(word)+1 <= chunkSize {
			current += word + " "
			continue
		}
		if current != "" {
			chunks = append(chunks, strings.TrimSpace(current))
		}
		current = word + " "
	}

	if current != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	return chunks
}

// Processor converts messages into documents with a configured chunk size.
type Processor struct {
	chunkSize int
	logger    *slog.Logger
}

// New creates a Processor. chunkSize is the maximum chunk length in characters.
func New(chunkSize int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Processor{
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Process converts one message into zero or more documents. A message whose
// content is empty after cleaning yields no documents. Document IDs follow
// the {message_id}_chunk_{i} scheme, so re-processing the same message
// produces the same IDs and upserts overwrite instead of duplicating.
func (p *Processor) Process(msg platform.Message) []knowledge.Document {
	text := CleanText(msg.Content)
	if text == "" {
		return nil
	}

	chunks := ChunkText(text, p.chunkSize)

	docs := make([]knowledge.Document, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		metadata := messageMetadata(msg)
		metadata["chunk_index"] = strconv.Itoa(i)
		metadata["total_chunks"] = strconv.Itoa(len(chunks))

		docs = append(docs, knowledge.Document{
			ID:       msg.ID + "_chunk_" + strconv.Itoa(i),
			Content:  chunk,
			Metadata: metadata,
		})
	}

	return docs
}

// ProcessBatch converts a batch of messages, preserving input order and
// chunk order within each message.
func (p *Processor) ProcessBatch(messages []platform.Message) []knowledge.Document {
	var docs []knowledge.Document
	for _, msg := range messages {
		docs = append(docs, p.Process(msg)...)
	}
	return docs
}

// messageMetadata extracts the per-message metadata shared by all of its
// chunks.
func messageMetadata(msg platform.Message) map[string]string {
	return map[string]string{
		"message_id":   msg.ID,
		"author_id":    msg.AuthorID,
		"author_name":  msg.AuthorName,
		"channel_id":   msg.ChannelID,
		"channel_name": msg.ChannelName,
		"guild_id":     msg.GuildID,
		"guild_name":   msg.GuildName,
		"timestamp":    msg.CreatedAt.Format(time.RFC3339),
	}
}
