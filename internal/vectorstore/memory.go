package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"fundbridge-gpt/internal/contextutil"
)

// MemoryStore is an in-process VectorStore using brute-force cosine similarity.
// It is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Point
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]Point)}
}

// Upsert inserts or updates points in the collection.
func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]Point)
		s.collections[collection] = coll
	}

	dim := 0
	for _, p := range coll {
		dim = len(p.Vec)
		break
	}
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point without id")
		}
		if dim != 0 && len(p.Vec) != dim {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(p.Vec))
		}
		dim = len(p.Vec)
	}

	for _, p := range points {
		coll[p.ID] = Point{ID: p.ID, Vec: cloneVec(p.Vec), Meta: cloneMeta(p.Meta)}
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "upserted points", "collection", collection, "count", len(points))
	return nil
}

// Search returns the k points most similar to query that match filters.
func (s *MemoryStore) Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := make([]SearchResult, 0)
	for _, p := range s.collections[collection] {
		if !matches(p.Meta, filters) {
			continue
		}
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   Cosine(query, p.Vec),
			Vec:     cloneVec(p.Vec),
			Meta:    cloneMeta(p.Meta),
		})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	if len(results) > k {
		results = results[:k]
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "search completed", "collection", collection, "k", k, "results", len(results))
	return results, nil
}

// Delete removes points by their IDs.
func (s *MemoryStore) Delete(ctx context.Context, collection string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[collection]
	for _, id := range ids {
		delete(coll, id)
	}
	return nil
}

// DeleteByFilter removes every point matching the filters.
func (s *MemoryStore) DeleteByFilter(ctx context.Context, collection string, filters map[string]any) error {
	if len(filters) == 0 {
		return fmt.Errorf("refusing to delete without a filter")
	}
	if err := validateFilters(filters); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	coll := s.collections[collection]
	for id, p := range coll {
		if matches(p.Meta, filters) {
			delete(coll, id)
			removed++
		}
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "deleted points by filter", "collection", collection, "count", removed)
	return nil
}

// CollectionExists reports whether the collection has been created.
func (s *MemoryStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[collection]
	return ok, nil
}

// EnsureCollection creates an empty collection. Vector size is not enforced.
func (s *MemoryStore) EnsureCollection(ctx context.Context, collection string, vectorSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = make(map[string]Point)
	}
	return nil
}

// Count returns the number of points in a collection.
func (s *MemoryStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero
// or their lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func validateFilters(filters map[string]any) error {
	for k, v := range filters {
		switch v.(type) {
		case string, bool, int, int32, int64:
		default:
			return fmt.Errorf("unsupported filter value for %q: %T", k, v)
		}
	}
	return nil
}

func matches(meta map[string]any, filters map[string]any) bool {
	for k, want := range filters {
		got, ok := meta[k]
		if !ok {
			return false
		}
		if wi, ok := asInt(want); ok {
			gi, ok := asInt(got)
			if !ok || gi != wi {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func cloneVec(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}

func cloneMeta(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
