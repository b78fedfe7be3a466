package store

import (
	"context"
	"testing"
)

func TestGraphReturnsNodesAndEdges(t *testing.T) {
	ctx := context.Background()
	s := openNoAutomerge(t)

	s.Memorize(ctx, "a", "Memory A content.", []string{"infra"})
	s.Memorize(ctx, "b", "Memory B content.", nil)
	s.Link(ctx, "a", "b", "related")

	g, err := s.Graph(ctx)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Errorf("expected 2 nodes, got %d", len(g.Nodes))
	}
	if len(g.Edges) != 1 {
		t.Errorf("expected 1 edge, got %d", len(g.Edges))
	}
	for _, n := range g.Nodes {
		if n.Mnemonic == "a" && len(n.Tags) != 1 {
			t.Errorf("expected node 'a' to carry its tags, got %v", n.Tags)
		}
	}
}

func TestListTagsOrdersByCountThenAlpha(t *testing.T) {
	ctx := context.Background()
	s := openNoAutomerge(t)

	s.Memorize(ctx, "a", "Memory A content.", []string{"infra", "design"})
	s.Memorize(ctx, "b", "Memory B content.", []string{"infra"})
	s.Memorize(ctx, "c", "Memory C content.", []string{"infra", "design", "security"})

	tags, err := s.ListTags(ctx)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 distinct tags, got %v", tags)
	}
	if tags[0].Tag != "infra" || tags[0].Count != 3 {
		t.Errorf("expected infra first with count 3, got %+v", tags[0])
	}
	if tags[1].Tag != "design" || tags[1].Count != 2 {
		t.Errorf("expected design second with count 2, got %+v", tags[1])
	}
	if tags[2].Tag != "security" || tags[2].Count != 1 {
		t.Errorf("expected security third with count 1, got %+v", tags[2])
	}
}
