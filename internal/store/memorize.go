package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rcliao/trivia/internal/storeerr"
)

// Memorize creates a memory, or absorbs it into an existing
// near-duplicate (auto-merge), then runs the auto-link pass. It
// implements the state machine in spec §4.5: EMBEDDING ->
// AUTOMERGE_CHECK -> {INSERT, MERGE_INTO_EXISTING} -> AUTOLINK -> DONE.
// Returns the canonical mnemonic (the existing one, if absorbed).
func (s *Store) Memorize(ctx context.Context, mnemonic, content string, tags []string) (string, error) {
	start := time.Now()
	mnemonic = strings.TrimSpace(mnemonic)
	content = strings.TrimSpace(content)
	if mnemonic == "" {
		return "", storeerr.New(storeerr.InvalidInput, mnemonic, "mnemonic must not be empty")
	}
	if content == "" {
		return "", storeerr.New(storeerr.InvalidInput, mnemonic, "content must not be empty")
	}
	normTags := normalizeTags(tags)

	// memorize serializes against itself so the auto-merge/auto-link
	// neighbor query observes a consistent prior-memory set (spec §5).
	s.memorizeMu.Lock()
	defer s.memorizeMu.Unlock()

	// EMBEDDING
	vec, err := s.embedder.Embed(ctx, mnemonic+embedInputSeparator+content)
	if err != nil {
		return "", storeerr.Wrap(err, storeerr.ModelFailure, mnemonic, "embed memorize input")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "begin transaction")
	}
	defer tx.Rollback()

	// AUTOMERGE_CHECK
	count, err := s.vectorCount(ctx, tx)
	if err != nil {
		return "", storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "count memories")
	}

	canonical := mnemonic
	merged := false
	if count > 0 {
		top, err := s.knn(ctx, tx, vec, 1)
		if err != nil {
			return "", storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "automerge pre-check knn")
		}
		if len(top) > 0 && top[0].Mnemonic != mnemonic && top[0].Distance <= s.automergeThreshold {
			canonical = top[0].Mnemonic
			if err := s.absorbInto(ctx, tx, canonical, content, normTags); err != nil {
				return "", err
			}
			merged = true
		}
	}

	if !merged {
		// INSERT
		if err := s.insertMemory(ctx, tx, mnemonic, content, normTags, vec); err != nil {
			return "", err
		}
	}

	// AUTOLINK — run against the canonical mnemonic's (possibly
	// re-embedded, for the merge path) vector.
	linkVec := vec
	if merged {
		mergedMem, err := s.getMemory(ctx, tx, canonical)
		if err != nil {
			return "", storeerr.Wrap(err, storeerr.BackendFailure, canonical, "reload merged memory")
		}
		linkVec, err = s.embedder.Embed(ctx, canonical+embedInputSeparator+mergedMem.Content)
		if err != nil {
			return "", storeerr.Wrap(err, storeerr.ModelFailure, canonical, "re-embed merged content")
		}
	}
	if err := s.autolink(ctx, tx, canonical, linkVec); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "commit memorize")
	}

	s.log.WithFields(logrus.Fields{
		"operation": "memorize",
		"mnemonic":  mnemonic,
		"canonical": canonical,
		"merged":    merged,
		"duration":  time.Since(start),
	}).Info("memorize completed")

	// DONE
	return canonical, nil
}

func (s *Store) insertMemory(ctx context.Context, tx *sql.Tx, mnemonic, content string, tags []string, vec []float32) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.insertMemoryAt(ctx, tx, mnemonic, content, tags, vec, now, now, 0)
}

// insertMemoryAt inserts a memory with explicit created_at/updated_at/
// recall_count values instead of stamping the current time, so Import
// can preserve an export's frontmatter timestamps (spec §8's round-trip
// contract) instead of re-dating every imported memory.
func (s *Store) insertMemoryAt(ctx context.Context, tx *sql.Tx, mnemonic, content string, tags []string, vec []float32, createdAt, updatedAt string, recallCount int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO memories (mnemonic, content, created_at, updated_at, recall_count, useful_count, not_useful_count)
		 VALUES (?, ?, ?, ?, ?, 0, 0)`,
		mnemonic, content, createdAt, updatedAt, recallCount)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "insert memory")
	}

	if err := s.insertTags(ctx, tx, mnemonic, tags); err != nil {
		return err
	}

	if err := s.upsertVector(ctx, tx, mnemonic, vec); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "upsert vector")
	}
	return nil
}

func (s *Store) insertTags(ctx context.Context, tx *sql.Tx, mnemonic string, tags []string) error {
	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memory_tags (mnemonic, tag) VALUES (?, ?)`, mnemonic, tag); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "insert tag")
		}
	}
	return nil
}

// absorbInto implements the auto-merge-into-existing path of memorize:
// append new content (if not already present), union tags, bump
// updated_at, re-embed and upsert the vector.
func (s *Store) absorbInto(ctx context.Context, tx *sql.Tx, existing, newContent string, newTags []string) error {
	mem, err := s.getMemory(ctx, tx, existing)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, existing, "load absorbing memory")
	}
	if mem == nil {
		return storeerr.New(storeerr.IntegrityViolation, existing, "automerge target vanished mid-transaction")
	}

	merged := appendContent(mem.Content, newContent)
	mergedTags := unionTags(mem.Tags, newTags)

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE memories SET content = ?, updated_at = ? WHERE mnemonic = ?`,
		merged, now, existing); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, existing, "update absorbing memory")
	}

	if err := s.insertTags(ctx, tx, existing, mergedTags); err != nil {
		return err
	}

	vec, err := s.embedder.Embed(ctx, existing+embedInputSeparator+merged)
	if err != nil {
		return storeerr.Wrap(err, storeerr.ModelFailure, existing, "re-embed after automerge")
	}
	if err := s.upsertVector(ctx, tx, existing, vec); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, existing, "upsert vector after automerge")
	}
	return nil
}

// autolink finds up to autolinkK neighbors within autolinkThreshold and
// creates `related` links to them from mnemonic. Idempotent via the
// memory_links uniqueness constraint.
func (s *Store) autolink(ctx context.Context, tx *sql.Tx, mnemonic string, vec []float32) error {
	neighbors, err := s.knn(ctx, tx, vec, s.autolinkK+1) // +1 since self may appear
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "autolink knn")
	}

	now := time.Now().UTC().Format(time.RFC3339)
	linked := 0
	for _, n := range neighbors {
		if linked >= s.autolinkK {
			break
		}
		if n.Mnemonic == mnemonic || n.Distance > s.autolinkThreshold {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memory_links (source, target, link_type, created_at) VALUES (?, ?, ?, ?)`,
			mnemonic, n.Mnemonic, "related", now); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "insert autolink")
		}
		linked++
	}
	return nil
}

// normalizeTags trims, lowercases, dedupes and drops empty tags.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// unionTags merges two already-normalized tag sets.
func unionTags(a, b []string) []string {
	return normalizeTags(append(append([]string(nil), a...), b...))
}

// appendContent joins discard content onto keep content with
// mergeSeparator, unless discard is already a substring of keep.
func appendContent(keep, discard string) string {
	if strings.Contains(keep, discard) {
		return keep
	}
	return keep + mergeSeparator + discard
}
