// Package knowledge manages the vector collection of indexed messages.
//
// Store persists documents with embeddings in a chromem-go collection and
// supports similarity search with metadata post-filtering. The embedding
// provider is initialized eagerly at construction; there is no lazy-init
// state to get out of order across add/search/clear.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/gofrs/flock"
	chromem "github.com/philippgille/chromem-go"
)

// maxWidenedCandidates caps the widened re-query when metadata filtering
// leaves fewer matches than requested. When fewer matching documents exist
// within this cap, Search returns fewer results; that is best effort, not an
// error.
const maxWidenedCandidates = 50

// addConcurrency bounds parallel embedding calls during AddDocuments.
const addConcurrency = 1

var collectionMetadata = map[string]string{
	"description": "guild knowledge base",
}

// Config configures the Store.
type Config struct {
	// Path is the persistence directory. Empty means in-memory (tests).
	Path string

	// Collection is the collection name. One collection per deployment.
	Collection string

	// Compress enables gzip compression of persisted documents.
	Compress bool
}

// Store persists documents with embeddings and serves similarity search.
//
// Store is safe for concurrent use: searches may run while an indexing job
// writes. Clear takes the write lock, so a search never observes a
// half-recreated collection.
type Store struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
	name      string
	fileLock  *flock.Flock
	logger    *slog.Logger

	mu   sync.RWMutex // guards coll swap in Clear
	coll *chromem.Collection
}

// New creates a Store and eagerly initializes the collection and embedding
// function. For persistent stores the data directory is guarded by a file
// lock so a second process cannot open the same collection.
func New(cfg Config, embedder ai.Embedder, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embedFunc := NewEmbeddingFunc(embedder)

	var (
		db       *chromem.DB
		fileLock *flock.Flock
	)

	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}

		fileLock = flock.New(filepath.Join(cfg.Path, ".lock"))
		locked, err := fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("locking data directory: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("data directory %s is locked by another process", cfg.Path)
		}

		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			_ = fileLock.Unlock()
			return nil, fmt.Errorf("opening vector store at %s: %w", cfg.Path, err)
		}
	}

	coll, err := db.GetOrCreateCollection(cfg.Collection, collectionMetadata, embedFunc)
	if err != nil {
		if fileLock != nil {
			_ = fileLock.Unlock()
		}
		return nil, fmt.Errorf("opening collection %q: %w", cfg.Collection, err)
	}

	logger.Info("vector store ready",
		"collection", cfg.Collection,
		"documents", coll.Count(),
		"persistent", cfg.Path != "")

	return &Store{
		db:        db,
		embedFunc: embedFunc,
		name:      cfg.Collection,
		fileLock:  fileLock,
		logger:    logger,
		coll:      coll,
	}, nil
}

// AddDocuments upserts one record per text, keyed by ID. Re-adding an
// existing ID overwrites it, so re-indexing is idempotent. Embeddings are
// generated at call time.
//
// A length mismatch between the slices returns ErrArgumentMismatch. Backend
// or embedding failures return a *StorageError; the caller must treat that as
// "unknown subset committed".
func (s *Store) AddDocuments(ctx context.Context, texts []string, metadatas []map[string]string, ids []string) error {
	if len(texts) != len(metadatas) || len(texts) != len(ids) {
		return fmt.Errorf("%w: %d texts, %d metadatas, %d ids",
			ErrArgumentMismatch, len(texts), len(metadatas), len(ids))
	}
	if len(texts) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(texts))
	for i, text := range texts {
		docs[i] = chromem.Document{
			ID:       ids[i],
			Content:  text,
			Metadata: metadatas[i],
		}
	}

	s.mu.RLock()
	coll := s.coll
	s.mu.RUnlock()

	if err := coll.AddDocuments(ctx, docs, addConcurrency); err != nil {
		return &StorageError{Op: "add", Err: err}
	}

	s.logger.Debug("added documents", "count", len(docs))
	return nil
}

// Search performs nearest-neighbor retrieval over nResults candidates,
// ordered by descending similarity. filter, when non-empty, is applied as a
// metadata-equality post-filter (all keys must match); filtering never
// reorders survivors.
//
// When the post-filter leaves fewer than nResults and the candidate set had
// more candidates than survivors, Search re-queries once with
// min(3*nResults, 50) candidates and merges new unique matches in backend
// order. With low match density it may still return fewer than nResults.
func (s *Store) Search(ctx context.Context, query string, nResults int, filter map[string]string) ([]Result, error) {
	if nResults <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	coll := s.coll
	s.mu.RUnlock()

	count := coll.Count()
	if count == 0 {
		return nil, nil
	}

	candidates, err := s.query(ctx, coll, query, min(nResults, count))
	if err != nil {
		return nil, err
	}

	if len(filter) == 0 {
		return toResults(candidates), nil
	}

	matched := filterCandidates(candidates, filter, nil, nResults)

	// Widen-and-retry: the backend has no native metadata filtering, so a
	// thin match density in the top candidates calls for one wider query.
	if len(matched) < nResults && len(candidates) > len(matched) {
		widened := min(nResults*3, maxWidenedCandidates)
		widened = min(widened, count)

		if widened > len(candidates) {
			more, err := s.query(ctx, coll, query, widened)
			if err != nil {
				return nil, err
			}

			seen := make(map[string]struct{}, len(matched))
			for _, r := range matched {
				seen[r.ID] = struct{}{}
			}
			matched = append(matched, filterCandidates(more, filter, seen, nResults-len(matched))...)
		}
	}

	return toResults(matched), nil
}

func (s *Store) query(ctx context.Context, coll *chromem.Collection, query string, n int) ([]chromem.Result, error) {
	results, err := coll.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, &StorageError{Op: "search", Err: err}
	}
	return results, nil
}

// filterCandidates keeps candidates whose metadata matches every filter key,
// skipping IDs in seen, up to limit. Input order is preserved.
func filterCandidates(candidates []chromem.Result, filter map[string]string, seen map[string]struct{}, limit int) []chromem.Result {
	var matched []chromem.Result
	for _, r := range candidates {
		if len(matched) >= limit {
			break
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		if metadataMatches(r.Metadata, filter) {
			matched = append(matched, r)
		}
	}
	return matched
}

func metadataMatches(metadata map[string]string, filter map[string]string) bool {
	for key, want := range filter {
		if got, ok := metadata[key]; !ok || got != want {
			return false
		}
	}
	return true
}

func toResults(candidates []chromem.Result) []Result {
	results := make([]Result, 0, len(candidates))
	for _, r := range candidates {
		results = append(results, Result{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: r.Metadata,
			},
			Score:    r.Similarity,
			Distance: 1 - r.Similarity,
		})
	}
	return results
}

// Stats returns the document count and collection name.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		TotalDocuments: s.coll.Count(),
		CollectionName: s.name,
	}
}

// Clear irreversibly deletes all records and recreates an empty collection
// under the same name with the same embedding function.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.DeleteCollection(s.name); err != nil {
		return &StorageError{Op: "clear", Err: err}
	}

	coll, err := s.db.CreateCollection(s.name, collectionMetadata, s.embedFunc)
	if err != nil {
		return &StorageError{Op: "clear", Err: err}
	}

	s.coll = coll
	s.logger.Info("cleared collection", "collection", s.name)
	return nil
}

// Close releases the data directory lock. The chromem DB itself needs no
// shutdown.
func (s *Store) Close() error {
	if s.fileLock != nil {
		if err := s.fileLock.Unlock(); err != nil {
			return fmt.Errorf("releasing data directory lock: %w", err)
		}
	}
	return nil
}
