package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// StubEmbedder generates a deterministic bag-of-tokens embedding: each
// token is hashed into its own pseudo-random unit-scale vector via an
// FNV64a seed fed through a linear congruential generator, and the
// per-token vectors are summed and renormalized. Unlike a whole-string
// hash, this gives two texts sharing vocabulary a small, predictable L2
// distance, which is what makes auto-merge/auto-link deterministically
// testable without a real model.
//
// It loads no model and makes no network calls; it is the Store's
// default embedder.
type StubEmbedder struct {
	dims int
}

// NewStub returns a StubEmbedder producing Dims-length vectors.
func NewStub() *StubEmbedder {
	return &StubEmbedder{dims: Dims}
}

func (e *StubEmbedder) Embed(_ context.Context, text string) (Vector, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	sum := make([]float64, e.dims)
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		seed := h.Sum64()
		for i := 0; i < e.dims; i++ {
			seed = seed*6364136223846793005 + 1442695040888963407
			sum[i] += float64(int64(seed)) / float64(math.MaxInt64)
		}
	}

	vec := make([]float32, e.dims)
	for i, v := range sum {
		vec[i] = float32(v / float64(len(tokens)))
	}

	return normalize(vec), nil
}

func (e *StubEmbedder) Dimensions() int { return e.dims }

// ModelVersion identifies the stub's hashing scheme. Bump this if the
// token-hash/LCG algorithm ever changes, since that would change every
// vector it produces.
func (e *StubEmbedder) ModelVersion() string { return "stub-bow-fnv64a-v1" }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
