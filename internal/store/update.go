package store

import (
	"context"
	"strings"
	"time"

	"github.com/rcliao/trivia/internal/storeerr"
)

// UpdateParams describes an update() call. Nil fields are left
// unchanged; NewMnemonic, if non-empty and different, renames the
// memory.
type UpdateParams struct {
	Content     *string
	Tags        *[]string
	NewMnemonic string
}

// Update mutates a memory in place: optional content re-embed, optional
// tag replacement, optional atomic rename (propagating to every link
// row referencing the old mnemonic).
func (s *Store) Update(ctx context.Context, mnemonic string, p UpdateParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "begin transaction")
	}
	defer tx.Rollback()

	mem, err := s.getMemory(ctx, tx, mnemonic)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "load memory")
	}
	if mem == nil {
		return storeerr.New(storeerr.NotFound, mnemonic, "memory not found")
	}

	target := mnemonic
	newMnemonic := strings.TrimSpace(p.NewMnemonic)
	if newMnemonic != "" && newMnemonic != mnemonic {
		exists, err := s.memoryExists(ctx, tx, newMnemonic)
		if err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, newMnemonic, "check rename target")
		}
		if exists {
			return storeerr.New(storeerr.AlreadyExists, newMnemonic, "rename target already exists")
		}

		// Tag and link rows reference memories(mnemonic); check those
		// foreign keys at commit, after every row has been moved.
		if _, err := tx.ExecContext(ctx, `PRAGMA defer_foreign_keys = ON`); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "defer foreign keys")
		}

		if _, err := tx.ExecContext(ctx, `UPDATE memories SET mnemonic = ? WHERE mnemonic = ?`, newMnemonic, mnemonic); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "rename memory")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE memory_tags SET mnemonic = ? WHERE mnemonic = ?`, newMnemonic, mnemonic); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "rename memory tags")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE memory_links SET source = ? WHERE source = ?`, newMnemonic, mnemonic); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "rewrite outbound links")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE memory_links SET target = ? WHERE target = ?`, newMnemonic, mnemonic); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "rewrite inbound links")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE mnemonic = ?`, mnemonic); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "drop vector under old mnemonic")
		}
		target = newMnemonic
	}

	content := mem.Content
	if p.Content != nil {
		content = strings.TrimSpace(*p.Content)
		if content == "" {
			return storeerr.New(storeerr.InvalidInput, mnemonic, "content must not be empty")
		}
	}

	contentChanged := p.Content != nil && content != mem.Content
	if contentChanged || target != mnemonic {
		vec, err := s.embedder.Embed(ctx, target+embedInputSeparator+content)
		if err != nil {
			return storeerr.Wrap(err, storeerr.ModelFailure, target, "re-embed updated content")
		}
		if err := s.upsertVector(ctx, tx, target, vec); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, target, "upsert vector")
		}
	}

	if p.Tags != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE mnemonic = ?`, target); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, target, "clear tags")
		}
		if err := s.insertTags(ctx, tx, target, normalizeTags(*p.Tags)); err != nil {
			return err
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE memories SET content = ?, updated_at = ? WHERE mnemonic = ?`, content, now, target); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, target, "bump updated_at")
	}

	return tx.Commit()
}
