package embedding

import (
	"context"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		expected float64
		delta    float64
	}{
		{"identical", Vector{1, 0, 0}, Vector{1, 0, 0}, 1.0, 0.001},
		{"orthogonal", Vector{1, 0, 0}, Vector{0, 1, 0}, 0.0, 0.001},
		{"opposite", Vector{1, 0, 0}, Vector{-1, 0, 0}, -1.0, 0.001},
		{"similar", Vector{1, 1, 0}, Vector{1, 0, 0}, 0.707, 0.01},
		{"empty", Vector{}, Vector{}, 0.0, 0.001},
		{"different lengths", Vector{1, 0}, Vector{1, 0, 0}, 0.0, 0.001},
		{"zero vector", Vector{0, 0, 0}, Vector{1, 0, 0}, 0.0, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("CosineSimilarity(%v, %v) = %f, want %f (±%f)", tt.a, tt.b, got, tt.expected, tt.delta)
			}
		})
	}
}

func TestCosineFromL2(t *testing.T) {
	if got := CosineFromL2(0); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("CosineFromL2(0) = %f, want 1.0", got)
	}
	if got := CosineFromL2(2); math.Abs(got-(-1.0)) > 1e-9 {
		// d=2 would give cos=-1 on the raw formula; clamp floors at 0.
		if got != 0 {
			t.Errorf("CosineFromL2(2) = %f, want clamped to 0", got)
		}
	}
}

func TestStubEmbedderNormalized(t *testing.T) {
	e := NewStub()
	vec, err := e.Embed(context.Background(), "three-layer architecture")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != Dims {
		t.Fatalf("len(vec) = %d, want %d", len(vec), Dims)
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("||v|| = %f, want ~1.0", norm)
	}
}

func TestStubEmbedderDeterministic(t *testing.T) {
	e := NewStub()
	a, _ := e.Embed(context.Background(), "arch\nThree-layer architecture.")
	b, _ := e.Embed(context.Background(), "arch\nThree-layer architecture.")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected identical text to embed identically at index %d", i)
		}
	}
}

func TestStubEmbedderSharedVocabularyIsCloser(t *testing.T) {
	e := NewStub()
	ctx := context.Background()
	base, _ := e.Embed(ctx, "arch\nThree-layer architecture.")
	near, _ := e.Embed(ctx, "arch-v2\nThree-layer architecture.")
	far, _ := e.Embed(ctx, "unrelated\nCompletely different subject matter entirely.")

	simNear := CosineSimilarity(base, near)
	simFar := CosineSimilarity(base, far)
	if simNear <= simFar {
		t.Errorf("expected shared-vocabulary text to score higher similarity: near=%f far=%f", simNear, simFar)
	}
}

func TestNewFromConfigDefaultsToStub(t *testing.T) {
	e, err := NewFromConfig("", "", "")
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if _, ok := e.(*StubEmbedder); !ok {
		t.Fatalf("expected *StubEmbedder, got %T", e)
	}
}

func TestNewFromConfigUnknown(t *testing.T) {
	if _, err := NewFromConfig("bogus", "", ""); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
