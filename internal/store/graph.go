package store

import (
	"context"

	"github.com/rcliao/trivia/internal/model"
	"github.com/rcliao/trivia/internal/storeerr"
)

// Graph returns every memory as a node (mnemonic + tags) and every
// link as an edge, unfiltered.
func (s *Store) Graph(ctx context.Context) (model.Graph, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mnemonic FROM memories ORDER BY mnemonic`)
	if err != nil {
		return model.Graph{}, storeerr.Wrap(err, storeerr.BackendFailure, "", "list memories for graph")
	}
	var nodes []model.GraphNode
	for rows.Next() {
		var mnemonic string
		if err := rows.Scan(&mnemonic); err != nil {
			rows.Close()
			return model.Graph{}, err
		}
		nodes = append(nodes, model.GraphNode{Mnemonic: mnemonic})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.Graph{}, err
	}

	for i := range nodes {
		tags, err := s.loadTags(ctx, s.db, nodes[i].Mnemonic)
		if err != nil {
			return model.Graph{}, err
		}
		nodes[i].Tags = tags
	}

	links, err := s.loadLinks(ctx, s.db, ``)
	if err != nil {
		return model.Graph{}, err
	}

	return model.Graph{Nodes: nodes, Edges: links}, nil
}

// ListTags returns every tag in use with its usage count, ordered by
// count descending then alphabetically.
func (s *Store) ListTags(ctx context.Context) ([]model.TagCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, COUNT(*) AS n FROM memory_tags GROUP BY tag ORDER BY n DESC, tag ASC`)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "list tags")
	}
	defer rows.Close()

	var tags []model.TagCount
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}
