package vectorstore

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/longregen/creditexplain/internal/domain"
	"github.com/longregen/creditexplain/internal/domain/models"
)

const localIndexFile = "index.msgpack"

// Local is a file-backed passage index for single-node deployments
// without PostgreSQL. Search is a brute-force cosine scan; the entry set
// is persisted to disk on every mutation.
type Local struct {
	mu      sync.RWMutex
	path    string
	entries map[string]models.IndexEntry
}

type localSnapshot struct {
	Entries []models.IndexEntry `msgpack:"entries"`
}

// NewLocal opens (or initializes) the index stored under dir
func NewLocal(dir string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vectorstore directory: %w", err)
	}

	l := &Local{
		path:    filepath.Join(dir, localIndexFile),
		entries: make(map[string]models.IndexEntry),
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("failed to read vectorstore index: %w", err)
	}

	var snapshot localSnapshot
	if err := msgpack.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode vectorstore index: %w", err)
	}
	for _, entry := range snapshot.Entries {
		l.entries[entry.ID] = entry
	}

	return l, nil
}

// Search returns up to k passages nearest to the query vector, ordered by
// increasing cosine distance. Ties break by ID for stable results.
func (l *Local) Search(ctx context.Context, vector []float32, k int, filter map[string]any) ([]models.Passage, error) {
	if len(vector) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	if k <= 0 {
		k = 10
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	passages := make([]models.Passage, 0, len(l.entries))
	for _, entry := range l.entries {
		if !matchesFilter(entry.Metadata, filter) {
			continue
		}
		passages = append(passages, models.Passage{
			ID:       entry.ID,
			Text:     entry.Text,
			Metadata: entry.Metadata,
			Distance: cosineDistance(vector, entry.Embedding),
		})
	}

	sort.Slice(passages, func(a, b int) bool {
		if passages[a].Distance != passages[b].Distance {
			return passages[a].Distance < passages[b].Distance
		}
		return passages[a].ID < passages[b].ID
	})

	if len(passages) > k {
		passages = passages[:k]
	}
	return passages, nil
}

// Upsert inserts or replaces entries by ID and persists the index
func (l *Local) Upsert(ctx context.Context, entries []models.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, entry := range entries {
		if entry.ID == "" {
			return fmt.Errorf("index entry has empty ID")
		}
		l.entries[entry.ID] = entry
	}

	return l.persistLocked()
}

// Count returns the number of indexed chunks
func (l *Local) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// persistLocked writes the snapshot through a temp file so a crash mid-write
// cannot corrupt the index. Caller must hold the write lock.
func (l *Local) persistLocked() error {
	snapshot := localSnapshot{Entries: make([]models.IndexEntry, 0, len(l.entries))}
	for _, entry := range l.entries {
		snapshot.Entries = append(snapshot.Entries, entry)
	}
	sort.Slice(snapshot.Entries, func(a, b int) bool {
		return snapshot.Entries[a].ID < snapshot.Entries[b].ID
	})

	data, err := msgpack.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode vectorstore index: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write vectorstore index: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("failed to replace vectorstore index: %w", err)
	}
	return nil
}

func validateFilter(filter map[string]any) error {
	for key, value := range filter {
		if key == "" {
			return fmt.Errorf("%w: empty filter key", domain.ErrInvalidFilter)
		}
		switch value.(type) {
		case string, bool, int, int32, int64, float32, float64, nil:
		default:
			return fmt.Errorf("%w: filter value for %q must be a scalar", domain.ErrInvalidFilter, key)
		}
	}
	return nil
}

func matchesFilter(metadata, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 1.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
