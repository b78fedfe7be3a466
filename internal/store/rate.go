package store

import (
	"context"

	"github.com/rcliao/trivia/internal/storeerr"
)

// Rate increments the useful or not_useful counter for a memory.
func (s *Store) Rate(ctx context.Context, mnemonic string, useful bool) error {
	column := "not_useful_count"
	if useful {
		column = "useful_count"
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET `+column+` = `+column+` + 1 WHERE mnemonic = ?`, mnemonic)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "rate memory")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "check rate result")
	}
	if n == 0 {
		return storeerr.New(storeerr.NotFound, mnemonic, "memory not found")
	}
	return nil
}
