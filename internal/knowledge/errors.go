package knowledge

import (
	"errors"
	"fmt"
)

// ErrArgumentMismatch indicates mismatched slice lengths passed to
// AddDocuments. This is a programming error in the caller and is never
// retried.
var ErrArgumentMismatch = errors.New("texts, metadatas and ids must have equal length")

// StorageError wraps a persistence or embedding backend failure. Writes are
// not rolled back: after a StorageError the caller must assume an unknown
// subset of the batch was committed.
type StorageError struct {
	Op  string // "add", "search", "clear"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
