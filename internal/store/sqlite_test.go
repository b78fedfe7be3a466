package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rcliao/trivia/internal/embedding"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), embedding.NewStub())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesDBFile(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "test.db")

	s, err := Open(dbPath, embedding.NewStub())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected db file to be created")
	}
}

func TestOpenIsIdempotentOnExistingDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s1, err := Open(dbPath, embedding.NewStub())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s1.Close()

	s2, err := Open(dbPath, embedding.NewStub())
	if err != nil {
		t.Fatalf("reopen existing db: %v", err)
	}
	defer s2.Close()
}

func TestOptionsOverrideDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"), embedding.NewStub(),
		WithAutomergeThreshold(0.1), WithAutolinkThreshold(0.5), WithAutolinkK(2))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	if s.automergeThreshold != 0.1 {
		t.Errorf("expected automergeThreshold 0.1, got %v", s.automergeThreshold)
	}
	if s.autolinkThreshold != 0.5 {
		t.Errorf("expected autolinkThreshold 0.5, got %v", s.autolinkThreshold)
	}
	if s.autolinkK != 2 {
		t.Errorf("expected autolinkK 2, got %v", s.autolinkK)
	}
}
