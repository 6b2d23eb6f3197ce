// Package index implements the flat inner-product embedding index over
// nutrition fact texts. Vectors are unit-L2-normalized at build time, so the
// inner product equals cosine similarity. Metadata is kept as a parallel
// slice in insertion order; that positional coupling is the invariant the
// persistence layer must preserve.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/MacroScout/macroscout/engine/domain"
)

// Hit is a single search result: a similarity score plus a copy of the
// fact stored at the matching position.
type Hit struct {
	Score float32
	Index int
	Fact  domain.NutritionFact
}

// Info describes a built index; persisted alongside it.
type Info struct {
	ModelName   string    `json:"model_name"`
	Dimension   int       `json:"dimension"`
	VectorCount int       `json:"vector_count"`
	IndexType   string    `json:"index_type"`
	CreatedAt   time.Time `json:"created_at"`
}

const indexType = "flat_ip"

// Flat is a brute-force inner-product index. After Build or a successful
// load it is read-only; the mutex exists for the build/load transitions.
type Flat struct {
	mu        sync.RWMutex
	embedder  Embedder
	logger    *slog.Logger
	vectors   [][]float32
	meta      []domain.NutritionFact
	info      Info
	available bool
}

// NewFlat creates an empty, unavailable index around the given embedder.
func NewFlat(embedder Embedder, logger *slog.Logger) *Flat {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flat{embedder: embedder, logger: logger}
}

// Build encodes each fact's text and inserts it. Facts with empty text are
// logged and skipped, never fatal. A fact that fails to embed aborts the
// build: a partial index would break the positional metadata contract.
func (x *Flat) Build(ctx context.Context, all []domain.NutritionFact) error {
	vectors := make([][]float32, 0, len(all))
	meta := make([]domain.NutritionFact, 0, len(all))

	for _, f := range all {
		if f.FactText == "" {
			x.logger.Warn("index: skipping fact with empty text", "name", f.Name)
			continue
		}
		vec, err := x.embedder.Embed(ctx, f.FactText)
		if err != nil {
			return fmt.Errorf("index: embed %q: %w", f.Name, err)
		}
		vectors = append(vectors, Normalize(vec))
		meta = append(meta, f)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = vectors
	x.meta = meta
	x.info = Info{
		ModelName:   x.embedder.ModelID(),
		Dimension:   x.embedder.Dimension(),
		VectorCount: len(vectors),
		IndexType:   indexType,
		CreatedAt:   time.Now().UTC(),
	}
	x.available = len(vectors) > 0
	x.logger.Info("index built", "vectors", len(vectors), "dimension", x.info.Dimension)
	return nil
}

// Available reports whether the index holds vectors and can serve searches.
func (x *Flat) Available() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.available
}

// Info returns the index info record.
func (x *Flat) Info() Info {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.info
}

// Size returns the number of indexed vectors.
func (x *Flat) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Search encodes the query the same way as build time and returns the top k
// hits by descending inner product. Ties keep insertion order. An
// unavailable index yields nil, never an error from the scan itself.
func (x *Flat) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	x.mu.RLock()
	vectors, meta, available := x.vectors, x.meta, x.available
	x.mu.RUnlock()

	if !available || k <= 0 {
		return nil, nil
	}

	q, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("index: embed query: %w", err)
	}
	q = Normalize(q)

	hits := make([]Hit, len(vectors))
	for i, v := range vectors {
		hits[i] = Hit{Score: dot(q, v), Index: i, Fact: meta[i]}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
