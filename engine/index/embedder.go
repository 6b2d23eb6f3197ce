package index

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into a fixed-length vector. Implementations must be
// deterministic for a given input and safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	ModelID() string
}

// HashingEmbedder is a dependency-free feature-hashing encoder. Word unigrams
// and bigrams are hashed into a fixed number of buckets with a signed hash,
// then L2-normalized. It captures lexical overlap only, which is enough for
// the short, formulaic fact texts the index holds, and it keeps tests and
// offline builds independent of an embedding service.
type HashingEmbedder struct {
	dim int
}

// DefaultHashDimension is the bucket count used when none is given.
const DefaultHashDimension = 256

// NewHashingEmbedder creates a hashing embedder with the given dimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashingEmbedder{dim: dim}
}

func (h *HashingEmbedder) Dimension() int  { return h.dim }
func (h *HashingEmbedder) ModelID() string { return "feature-hash-v1" }

// Embed hashes token features into buckets. Never returns an error; the
// signature matches the remote embedder implementations.
func (h *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	tokens := tokenize(text)
	for i, tok := range tokens {
		h.add(vec, tok)
		if i+1 < len(tokens) {
			h.add(vec, tok+" "+tokens[i+1])
		}
	}
	return Normalize(vec), nil
}

func (h *HashingEmbedder) add(vec []float32, feature string) {
	hash := fnv.New64a()
	hash.Write([]byte(feature))
	sum := hash.Sum64()
	bucket := int(sum % uint64(h.dim))
	if sum&(1<<63) != 0 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
}

// Normalize scales v to unit L2 norm in place and returns it. A zero vector
// is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
