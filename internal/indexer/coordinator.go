// Package indexer orchestrates indexing jobs: collect message history,
// process it into documents, and store them in batches.
//
// At most one indexing job runs per process. The job lock is acquired
// non-blockingly, so a concurrent start is rejected immediately instead of
// queueing. Progress is published as an atomic whole-struct snapshot with a
// single writer, so readers never need a lock.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/guildsage/guildsage/internal/collector"
	"github.com/guildsage/guildsage/internal/knowledge"
	"github.com/guildsage/guildsage/internal/platform"
)

const (
	// defaultBatchSize is the number of messages processed and stored per
	// batch when the caller does not choose one.
	defaultBatchSize = 50

	// interBatchDelay yields between batches, layered on top of the
	// collector's own page delay.
	interBatchDelay = 100 * time.Millisecond
)

// Messages returned to callers. The contention message doubles as the
// distinguishing marker between "busy" and a hard failure.
const (
	msgAlreadyRunning = "Indexing already in progress"
	msgCompleted      = "Indexing completed successfully"
)

// Source collects message history. Implemented by collector.Collector.
type Source interface {
	Collect(ctx context.Context, channelID string, limit int) ([]platform.Message, error)
	CollectGuild(ctx context.Context, guildID string, limitPerChannel int) ([]platform.Message, error)
}

// Processor converts messages into documents. Implemented by
// processor.Processor.
type Processor interface {
	ProcessBatch(messages []platform.Message) []knowledge.Document
}

// DocumentStore persists processed documents. Implemented by
// knowledge.Store.
type DocumentStore interface {
	AddDocuments(ctx context.Context, texts []string, metadatas []map[string]string, ids []string) error
}

// Progress is the externally visible state of the active job. The zero value
// means no job is running.
type Progress struct {
	Status    string
	Processed int
	Total     int
}

// Coordinator runs indexing jobs. Construct one per process and inject it
// into callers; it owns its own lock and progress state.
type Coordinator struct {
	source    Source
	processor Processor
	store     DocumentStore
	batchSize int
	logger    *slog.Logger

	mu       sync.Mutex // job lock, try-acquired at Start
	running  atomic.Bool
	progress atomic.Pointer[Progress]
}

// New creates a Coordinator. batchSize <= 0 selects the default of 50.
func New(source Source, processor Processor, store DocumentStore, batchSize int, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	c := &Coordinator{
		source:    source,
		processor: processor,
		store:     store,
		batchSize: batchSize,
		logger:    logger,
	}
	c.progress.Store(&Progress{})
	return c
}

// IsRunning reports whether an indexing job is active.
func (c *Coordinator) IsRunning() bool {
	return c.running.Load()
}

// Progress returns a snapshot of the active job's progress. The zero value
// is returned when no job is running.
func (c *Coordinator) Progress() Progress {
	return *c.progress.Load()
}

// Start runs an indexing job for the guild. An empty channelID indexes every
// text channel in the guild; otherwise only that channel.
//
// The returned bool distinguishes success from failure; the message is
// human-readable. A concurrent Start returns (false, "Indexing already in
// progress") immediately without blocking. Collection, processing and
// storage errors are caught here, logged, and converted into a (false,
// message) result; they never propagate past the coordinator. The lock is
// released and progress reset on every exit path.
func (c *Coordinator) Start(ctx context.Context, guildID, channelID string) (bool, string) {
	if !c.mu.TryLock() {
		return false, msgAlreadyRunning
	}
	defer c.mu.Unlock()

	c.running.Store(true)
	defer c.running.Store(false)

	c.progress.Store(&Progress{Status: "Starting..."})
	defer c.progress.Store(&Progress{})

	logger := c.logger.With(
		"job_id", uuid.NewString(),
		"guild_id", guildID,
	)
	if channelID != "" {
		logger = logger.With("channel_id", channelID)
	}

	logger.Info("indexing started")

	if err := c.run(ctx, logger, guildID, channelID); err != nil {
		logger.Error("indexing failed", "error", err)
		return false, fmt.Sprintf("Indexing failed: %v", err)
	}

	logger.Info("indexing completed")
	return true, msgCompleted
}

// run executes the collect, process and store pipeline for one job.
func (c *Coordinator) run(ctx context.Context, logger *slog.Logger, guildID, channelID string) error {
	var (
		messages []platform.Message
		err      error
	)
	if channelID != "" {
		messages, err = c.source.Collect(ctx, channelID, 0)
	} else {
		messages, err = c.source.CollectGuild(ctx, guildID, 0)
	}
	if err != nil {
		return err
	}

	textMessages := collector.FilterTextMessages(messages)
	total := len(textMessages)

	c.progress.Store(&Progress{Status: "Processing messages...", Total: total})
	logger.Info("collected messages", "total", len(messages), "with_text", total)

	for start := 0; start < total; start += c.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+c.batchSize, total)
		docs := c.processor.ProcessBatch(textMessages[start:end])

		if len(docs) > 0 {
			texts, metadatas, ids := splitDocuments(docs)
			if err := c.store.AddDocuments(ctx, texts, metadatas, ids); err != nil {
				return err
			}
		}

		c.progress.Store(&Progress{
			Status:    fmt.Sprintf("Processed %d/%d messages", end, total),
			Processed: end,
			Total:     total,
		})

		if end < total {
			if err := sleep(ctx, interBatchDelay); err != nil {
				return err
			}
		}
	}

	return nil
}

// splitDocuments shapes documents into the parallel slices AddDocuments
// expects.
func splitDocuments(docs []knowledge.Document) (texts []string, metadatas []map[string]string, ids []string) {
	texts = make([]string, len(docs))
	metadatas = make([]map[string]string, len(docs))
	ids = make([]string, len(docs))

	for i, doc := range docs {
		texts[i] = doc.Content
		metadatas[i] = doc.Metadata
		ids[i] = doc.ID
	}

	return texts, metadatas, ids
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
