package store

import (
	"context"

	"github.com/rcliao/trivia/internal/storeerr"
)

// Delete removes a memory row, its tags, its vector, and every link
// with it as either endpoint. Idempotent: deleting a non-existent
// mnemonic succeeds silently.
func (s *Store) Delete(ctx context.Context, mnemonic string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "begin transaction")
	}
	defer tx.Rollback()

	exists, err := s.memoryExists(ctx, tx, mnemonic)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "check existence")
	}
	if !exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_links WHERE source = ? OR target = ?`, mnemonic, mnemonic); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "delete links")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE mnemonic = ?`, mnemonic); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "delete tags")
	}
	if err := s.removeVector(ctx, tx, mnemonic); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "delete vector")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE mnemonic = ?`, mnemonic); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "delete memory")
	}

	return tx.Commit()
}
