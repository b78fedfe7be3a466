package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rcliao/trivia/internal/embedding"
	"github.com/rcliao/trivia/internal/storeerr"
)

// versionedEmbedder wraps a StubEmbedder but reports an arbitrary
// ModelVersion, so tests can simulate re-opening a database under a
// different model without loading a second real model.
type versionedEmbedder struct {
	*embedding.StubEmbedder
	version string
}

func (e versionedEmbedder) ModelVersion() string { return e.version }

func TestOpenWritesVersionMarkersOnFreshDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-a"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	schemaVer, ok, err := s.getMeta(context.Background(), metaKeySchemaVersion)
	if err != nil || !ok {
		t.Fatalf("expected schema_version to be recorded, ok=%v err=%v", ok, err)
	}
	if schemaVer != "1" {
		t.Errorf("schema_version = %q, want %q", schemaVer, "1")
	}

	modelVer, ok, err := s.getMeta(context.Background(), metaKeyModelVersion)
	if err != nil || !ok {
		t.Fatalf("expected model_version to be recorded, ok=%v err=%v", ok, err)
	}
	if modelVer != "model-a" {
		t.Errorf("model_version = %q, want %q", modelVer, "model-a")
	}
}

func TestOpenSameModelVersionSucceeds(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s1, err := Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-a"})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-a"})
	if err != nil {
		t.Fatalf("reopen under same model version: %v", err)
	}
	s2.Close()
}

func TestOpenDifferentModelVersionRefusesWithoutReembed(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s1, err := Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-a"})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s1.Memorize(context.Background(), "note-one", "remember this", nil); err != nil {
		t.Fatalf("memorize: %v", err)
	}
	s1.Close()

	_, err = Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-b"})
	if err == nil {
		t.Fatal("expected refusal opening under a different model version without --reembed")
	}
	if !storeerr.IsIntegrityViolation(err) {
		t.Errorf("expected IntegrityViolation, got %v", storeerr.KindOf(err))
	}
}

func TestOpenDifferentModelVersionWithReembedSucceeds(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s1, err := Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-a"})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s1.Memorize(context.Background(), "note-one", "remember this", nil); err != nil {
		t.Fatalf("memorize: %v", err)
	}
	s1.Close()

	s2, err := Open(dbPath, versionedEmbedder{embedding.NewStub(), "model-b"}, WithReembed(true))
	if err != nil {
		t.Fatalf("reopen with --reembed: %v", err)
	}
	defer s2.Close()

	modelVer, ok, err := s2.getMeta(context.Background(), metaKeyModelVersion)
	if err != nil || !ok {
		t.Fatalf("expected model_version to be recorded, ok=%v err=%v", ok, err)
	}
	if modelVer != "model-b" {
		t.Errorf("model_version = %q, want %q", modelVer, "model-b")
	}

	results, err := s2.Recall(context.Background(), RecallParams{Query: "remember", Limit: 5})
	if err != nil {
		t.Fatalf("recall after reembed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result after reembed, got %d", len(results))
	}
}
