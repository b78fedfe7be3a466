package store

import (
	"context"
	"testing"
)

func TestDeleteRemovesMemoryTagsAndLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", []string{"infra"})
	s.Memorize(ctx, "b", "Memory B content.", nil)
	s.Link(ctx, "a", "b", "related")

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	mem, err := s.getMemory(ctx, s.db, "a")
	if err != nil {
		t.Fatalf("getMemory: %v", err)
	}
	if mem != nil {
		t.Error("expected memory to be gone")
	}

	links, err := s.Links(ctx, "b")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no links remaining referencing deleted memory, got %v", links)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Delete(ctx, "ghost"); err != nil {
		t.Errorf("expected deleting a nonexistent memory to succeed, got %v", err)
	}
}
