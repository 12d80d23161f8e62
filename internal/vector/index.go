// Package vector defines the collection abstraction over an external
// similarity-search service. Implementations live in the milvus and
// memory subpackages.
package vector

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrUnreachable marks connectivity failures against the backing
// service. Read-path callers degrade to empty results on it; admin
// operations surface it directly.
var ErrUnreachable = errors.New("vector index unreachable")

// Metadata describes where an indexed chunk came from.
type Metadata struct {
	Filename    string `json:"filename"`
	Filepath    string `json:"filepath"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Record is an indexed chunk. IDs are deterministic
// (relative path + "_" + chunk index) so re-ingestion upserts in place.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// QueryMatch is a single nearest-neighbour result. Distance is cosine
// distance (1 - cosine similarity), in [0, 2] for unit vectors.
type QueryMatch struct {
	ID       string   `json:"id"`
	Text     string   `json:"document"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// Index is a named collection of records with k-NN search. The distance
// metric is cosine, fixed when a collection is created.
type Index interface {
	// CreateOrGet ensures the named collection exists.
	CreateOrGet(ctx context.Context, name string) error

	// Upsert inserts records, overwriting any with the same id.
	Upsert(ctx context.Context, name string, records []Record) error

	// Query returns at most k matches ordered by ascending distance.
	// An empty collection yields an empty slice and no error.
	Query(ctx context.Context, name string, vec []float32, k int) ([]QueryMatch, error)

	// GetByIDs returns records aligned 1:1 with ids; missing ids yield
	// nil entries.
	GetByIDs(ctx context.Context, name string, ids []string) ([]*Record, error)

	// Delete drops the named collection and everything in it.
	Delete(ctx context.Context, name string) error

	// List returns the names of all collections.
	List(ctx context.Context) ([]string, error)

	// Count returns the number of records in the named collection.
	Count(ctx context.Context, name string) (int64, error)
}

var nameSanitizer = regexp.MustCompile(`[\s-]+`)

// NormalizeName maps a user-supplied collection name onto the namespace
// the backing service accepts: lowercased, spaces and hyphens replaced
// with underscores.
func NormalizeName(name string) string {
	return nameSanitizer.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
}
