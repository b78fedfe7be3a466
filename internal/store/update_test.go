package store

import (
	"context"
	"testing"
)

func TestUpdateContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "config", "Config is loaded from env vars.", nil)

	newContent := "Config is loaded from env vars, then trivia.toml."
	if err := s.Update(ctx, "config", UpdateParams{Content: &newContent}); err != nil {
		t.Fatalf("update: %v", err)
	}

	mem, err := s.getMemory(ctx, s.db, "config")
	if err != nil || mem == nil {
		t.Fatalf("getMemory: %v", err)
	}
	if mem.Content != newContent {
		t.Errorf("expected updated content, got %q", mem.Content)
	}
}

func TestUpdateTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "config", "Config loading.", []string{"infra"})

	newTags := []string{"infra", "config"}
	if err := s.Update(ctx, "config", UpdateParams{Tags: &newTags}); err != nil {
		t.Fatalf("update: %v", err)
	}

	mem, _ := s.getMemory(ctx, s.db, "config")
	if len(mem.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", mem.Tags)
	}
}

func TestUpdateRenameRewritesLinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)
	s.Memorize(ctx, "b", "Memory B content.", nil)
	if err := s.Link(ctx, "a", "b", "related"); err != nil {
		t.Fatalf("link: %v", err)
	}

	if err := s.Update(ctx, "a", UpdateParams{NewMnemonic: "a-renamed"}); err != nil {
		t.Fatalf("update rename: %v", err)
	}

	if mem, err := s.getMemory(ctx, s.db, "a"); err != nil || mem != nil {
		t.Error("expected old mnemonic to no longer exist")
	}

	links, err := s.Links(ctx, "a-renamed")
	if err != nil {
		t.Fatalf("links: %v", err)
	}
	found := false
	for _, l := range links {
		if l.Source == "a-renamed" && l.Target == "b" {
			found = true
		}
	}
	if !found {
		t.Error("expected link to be rewritten onto the new mnemonic")
	}
}

func TestUpdateRenameCollidesWithExisting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.Memorize(ctx, "a", "Memory A content.", nil)
	s.Memorize(ctx, "b-totally-different-words-here", "Something else entirely unrelated.", nil)

	err := s.Update(ctx, "a", UpdateParams{NewMnemonic: "b-totally-different-words-here"})
	if err == nil {
		t.Error("expected error renaming onto an existing mnemonic")
	}
}

func TestUpdateNonexistentMnemonic(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	content := "does not matter"
	err := s.Update(ctx, "ghost", UpdateParams{Content: &content})
	if err == nil {
		t.Error("expected error updating nonexistent memory")
	}
}
