package store

import (
	"context"
	"testing"

	"github.com/rcliao/trivia/internal/model"
	"github.com/rcliao/trivia/internal/storeerr"
)

func TestLinkAndUnlink(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)
	s.Memorize(ctx, "b", "Memory B content.", nil)

	if err := s.Link(ctx, "a", "b", model.LinkSupersedes); err != nil {
		t.Fatalf("link: %v", err)
	}

	links, err := s.Links(ctx, "a")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	if len(links) != 1 || links[0].LinkType != model.LinkSupersedes {
		t.Fatalf("expected one supersedes link, got %v", links)
	}

	if err := s.Unlink(ctx, "a", "b", model.LinkSupersedes); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	links, _ = s.Links(ctx, "a")
	if len(links) != 0 {
		t.Errorf("expected no links after unlink, got %v", links)
	}
}

func TestLinkRejectsSelfLoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)

	err := s.Link(ctx, "a", "a", model.LinkRelated)
	if !storeerr.IsInvalidInput(err) {
		t.Errorf("expected InvalidInput for self-loop, got %v", err)
	}
}

func TestLinkRejectsUnknownEndpoint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)

	err := s.Link(ctx, "a", "ghost", model.LinkRelated)
	if !storeerr.IsNotFound(err) {
		t.Errorf("expected NotFound for unknown endpoint, got %v", err)
	}
}

func TestLinkRejectsInvalidType(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)
	s.Memorize(ctx, "b", "Memory B content.", nil)

	err := s.Link(ctx, "a", "b", model.LinkType("bogus"))
	if !storeerr.IsInvalidInput(err) {
		t.Errorf("expected InvalidInput for unknown link type, got %v", err)
	}
}

func TestUnlinkIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)
	s.Memorize(ctx, "b", "Memory B content.", nil)

	if err := s.Unlink(ctx, "a", "b", model.LinkRelated); err != nil {
		t.Errorf("expected unlinking a nonexistent link to succeed, got %v", err)
	}
}
