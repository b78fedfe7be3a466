package store

import (
	"context"
	"strings"
	"testing"

	"github.com/rcliao/trivia/internal/embedding"
)

func TestMemorizeCreatesMemory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	got, err := s.Memorize(ctx, "arch", "Three-layer architecture: API, service, repository.", []string{"Design", "design"})
	if err != nil {
		t.Fatalf("memorize: %v", err)
	}
	if got != "arch" {
		t.Errorf("expected mnemonic 'arch', got %q", got)
	}

	mem, err := s.getMemory(ctx, s.db, "arch")
	if err != nil || mem == nil {
		t.Fatalf("getMemory: %v", err)
	}
	if len(mem.Tags) != 1 || mem.Tags[0] != "design" {
		t.Errorf("expected normalized deduped tags [design], got %v", mem.Tags)
	}
}

func TestMemorizeRejectsEmptyMnemonicOrContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Memorize(ctx, "", "content", nil); err == nil {
		t.Error("expected error for empty mnemonic")
	}
	if _, err := s.Memorize(ctx, "mnemonic", "  ", nil); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestMemorizeAutoMergesNearDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Memorize(ctx, "arch", "Three-layer architecture.", nil)
	if err != nil {
		t.Fatalf("first memorize: %v", err)
	}

	second, err := s.Memorize(ctx, "arch-v2", "Three-layer architecture.", nil)
	if err != nil {
		t.Fatalf("second memorize: %v", err)
	}
	if second != first {
		t.Fatalf("expected auto-merge to return canonical mnemonic %q, got %q", first, second)
	}

	if _, err := s.getMemory(ctx, s.db, "arch-v2"); err != nil {
		t.Fatalf("getMemory: %v", err)
	}
	mem, _ := s.getMemory(ctx, s.db, "arch-v2")
	if mem != nil {
		t.Error("expected arch-v2 to never have been created as its own row")
	}
}

func TestMemorizeDoesNotMergeUnrelatedContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.Memorize(ctx, "arch", "Three-layer architecture.", nil); err != nil {
		t.Fatalf("memorize: %v", err)
	}
	got, err := s.Memorize(ctx, "unrelated", "Completely different subject matter entirely.", nil)
	if err != nil {
		t.Fatalf("memorize: %v", err)
	}
	if got != "unrelated" {
		t.Errorf("expected distinct memory to stay separate, got canonical %q", got)
	}
}

func TestMemorizeAppendsContentOnMerge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "arch", "Three-layer architecture.", nil)
	s.Memorize(ctx, "arch-v2", "Three-layer architecture.", nil)

	mem, err := s.getMemory(ctx, s.db, "arch")
	if err != nil || mem == nil {
		t.Fatalf("getMemory: %v", err)
	}
	if !strings.Contains(mem.Content, mergeSeparator) {
		t.Errorf("expected merged content to contain separator, got %q", mem.Content)
	}
}

func TestMemorizeAutolinksRelatedMemories(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	// A lenient threshold (max possible L2 distance between normalized
	// vectors is 2) makes autolink deterministic regardless of the stub
	// embedder's exact geometry, and an automerge threshold of 0 keeps
	// the two memories distinct rows.
	s, err := Open(dir+"/test.db", embedding.NewStub(), WithAutolinkThreshold(2.0), WithAutomergeThreshold(0))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	s.Memorize(ctx, "layering", "API layer calls service layer.", nil)
	s.Memorize(ctx, "layering-notes", "Completely unrelated subject.", nil)

	links, err := s.Links(ctx, "layering-notes")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links) == 0 {
		t.Error("expected autolink to have created at least one related link")
	}
}
