package store

import (
	"context"
	"time"

	"github.com/rcliao/trivia/internal/model"
	"github.com/rcliao/trivia/internal/storeerr"
)

// Link validates endpoints and type, then inserts the edge. Idempotent
// on an exact duplicate triple.
func (s *Store) Link(ctx context.Context, source, target string, linkType model.LinkType) error {
	if source == target {
		return storeerr.New(storeerr.InvalidInput, source, "link source and target must differ")
	}
	if !model.ValidLinkTypes[linkType] {
		return storeerr.Newf(storeerr.InvalidInput, source, "invalid link_type %q", linkType)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, source, "begin transaction")
	}
	defer tx.Rollback()

	for _, mnemonic := range []string{source, target} {
		exists, err := s.memoryExists(ctx, tx, mnemonic)
		if err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "check endpoint")
		}
		if !exists {
			return storeerr.New(storeerr.NotFound, mnemonic, "link endpoint does not exist")
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO memory_links (source, target, link_type, created_at) VALUES (?, ?, ?, ?)`,
		source, target, string(linkType), now); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, source, "insert link")
	}

	return tx.Commit()
}

// Unlink removes the exact (source, target, link_type) triple.
// Idempotent: removing a non-existent link succeeds silently.
func (s *Store) Unlink(ctx context.Context, source, target string, linkType model.LinkType) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM memory_links WHERE source = ? AND target = ? AND link_type = ?`,
		source, target, string(linkType))
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, source, "unlink")
	}
	return nil
}

// Links returns every link with mnemonic as either endpoint.
func (s *Store) Links(ctx context.Context, mnemonic string) ([]model.Link, error) {
	return s.loadLinks(ctx, s.db, `WHERE source = ? OR target = ?`, mnemonic, mnemonic)
}

func (s *Store) loadLinks(ctx context.Context, q queryer, where string, args ...any) ([]model.Link, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT source, target, link_type, created_at FROM memory_links `+where+` ORDER BY source, target, link_type`, args...)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "query links")
	}
	defer rows.Close()

	var links []model.Link
	for rows.Next() {
		var l model.Link
		var createdAt string
		var linkType string
		if err := rows.Scan(&l.Source, &l.Target, &linkType, &createdAt); err != nil {
			return nil, err
		}
		l.LinkType = model.LinkType(linkType)
		l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		links = append(links, l)
	}
	return links, rows.Err()
}
