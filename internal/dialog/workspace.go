package dialog

import (
	"context"
	"errors"
	"time"

	"github.com/KrishnarajT/remindarr/internal/domain"
)

// ErrCollectionNotFound is returned by a Workspace when the collection id is
// unknown or not shared with the integration.
var ErrCollectionNotFound = errors.New("collection not found")

// Record is one candidate reminder pulled from an external collection.
// DueAt is nil when the mapped time property is empty or not a date.
type Record struct {
	Name   string
	DueAt  *time.Time
	Done   bool
	PageID string
}

// Workspace is the external task-workspace collaborator the integration
// flow talks to. Implementations must treat the token per call; the engine
// never caches credentials outside the user row.
type Workspace interface {
	// ValidateToken checks the credential and returns the integration's
	// display name on success.
	ValidateToken(ctx context.Context, token string) (string, error)
	// CollectionProperties returns the property names of a collection, or
	// ErrCollectionNotFound.
	CollectionProperties(ctx context.Context, token, collectionID string) ([]string, error)
	// QueryCollection returns the collection's records with the mapped
	// properties extracted. Extraction is lenient: a type mismatch yields
	// an absent value, never a per-record error.
	QueryCollection(ctx context.Context, token, collectionID string, m domain.PropertyMapping) ([]Record, error)
}
