package store

import (
	"context"
	"os"

	"github.com/rcliao/trivia/internal/storeerr"
)

// Stats holds database statistics, surfaced by the `trivia stats`
// command (additive CLI surface, spec_full §6.6).
type Stats struct {
	DBPath        string    `json:"db_path"`
	DBSizeBytes   int64     `json:"db_size_bytes"`
	TotalMemories int       `json:"total_memories"`
	TotalLinks    int       `json:"total_links"`
	TotalTags     int       `json:"total_tags"`
	TopTags       []TagStat `json:"top_tags"`
}

// TagStat is one row of the top-tags breakdown in Stats.
type TagStat struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats reports counts across memories, links, and tags plus the
// on-disk database file size.
func (s *Store) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.TotalMemories); err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "count memories")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_links`).Scan(&st.TotalLinks); err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "count links")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT tag) FROM memory_tags`).Scan(&st.TotalTags); err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "count tags")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tag, COUNT(*) AS n FROM memory_tags GROUP BY tag ORDER BY n DESC, tag ASC LIMIT 10`)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "top tags")
	}
	defer rows.Close()

	for rows.Next() {
		var ts TagStat
		if err := rows.Scan(&ts.Tag, &ts.Count); err != nil {
			return nil, err
		}
		st.TopTags = append(st.TopTags, ts)
	}
	return st, rows.Err()
}
