package store

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rcliao/trivia/internal/storeerr"
)

// Merge absorbs discard into keep: appends content (deduped), unions
// tags, rewrites every link referencing discard to reference keep
// (dropping any self-loops created and deduplicating), sums counters,
// deletes discard, then re-embeds and upserts keep's vector.
func (s *Store) Merge(ctx context.Context, keep, discard string) error {
	start := time.Now()
	if keep == discard {
		return storeerr.New(storeerr.InvalidInput, keep, "merge keep and discard must differ")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, keep, "begin transaction")
	}
	defer tx.Rollback()

	if err := s.mergeTx(ctx, tx, keep, discard); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"operation": "merge",
		"keep":      keep,
		"discard":   discard,
		"duration":  time.Since(start),
	}).Info("merge completed")

	return nil
}

func (s *Store) mergeTx(ctx context.Context, tx *sql.Tx, keep, discard string) error {
	keepMem, err := s.getMemory(ctx, tx, keep)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, keep, "load keep")
	}
	if keepMem == nil {
		return storeerr.New(storeerr.NotFound, keep, "merge keep does not exist")
	}
	discardMem, err := s.getMemory(ctx, tx, discard)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, discard, "load discard")
	}
	if discardMem == nil {
		return storeerr.New(storeerr.NotFound, discard, "merge discard does not exist")
	}

	merged := appendContent(keepMem.Content, discardMem.Content)
	mergedTags := unionTags(keepMem.Tags, discardMem.Tags)

	// Rewrite links referencing discard to reference keep.
	links, err := s.loadLinks(ctx, tx, `WHERE source = ? OR target = ?`, discard, discard)
	if err != nil {
		return err
	}
	for _, l := range links {
		source, target := l.Source, l.Target
		if source == discard {
			source = keep
		}
		if target == discard {
			target = keep
		}
		if source == target {
			continue // drop self-loop created by the rewrite
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO memory_links (source, target, link_type, created_at) VALUES (?, ?, ?, ?)`,
			source, target, string(l.LinkType), l.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, keep, "rewrite link onto keep")
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_links WHERE source = ? OR target = ?`, discard, discard); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, discard, "drop discard links")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE mnemonic = ?`, discard); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, discard, "drop discard tags")
	}
	if err := s.removeVector(ctx, tx, discard); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, discard, "drop discard vector")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE mnemonic = ?`, discard); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, discard, "delete discard")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE mnemonic = ?`, keep); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, keep, "clear keep tags")
	}
	if err := s.insertTags(ctx, tx, keep, mergedTags); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx,
		`UPDATE memories SET content = ?, updated_at = ?,
		 recall_count = recall_count + ?, useful_count = useful_count + ?, not_useful_count = not_useful_count + ?
		 WHERE mnemonic = ?`,
		merged, now, discardMem.RecallCount, discardMem.UsefulCount, discardMem.NotUsefulCount, keep); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, keep, "update keep counters")
	}

	vec, err := s.embedder.Embed(ctx, keep+embedInputSeparator+merged)
	if err != nil {
		return storeerr.Wrap(err, storeerr.ModelFailure, keep, "re-embed keep after merge")
	}
	if err := s.upsertVector(ctx, tx, keep, vec); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, keep, "upsert keep vector after merge")
	}

	return nil
}

// Automerge scans all memories for pairs within threshold and merges
// each near-duplicate pair found, keeping the memory with the higher
// recall_count (ties by earlier created_at, then lexicographically
// ascending mnemonic — spec §9's resolved Open Question). With dryRun,
// reports the pairs that would be merged without mutating anything.
func (s *Store) Automerge(ctx context.Context, threshold float64, dryRun bool) ([][2]string, error) {
	start := time.Now()
	if threshold <= 0 {
		threshold = s.automergeThreshold
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY mnemonic`)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "list memories for automerge")
	}
	var all []struct {
		mnemonic    string
		createdAt   time.Time
		recallCount int
	}
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		all = append(all, struct {
			mnemonic    string
			createdAt   time.Time
			recallCount int
		}{m.Mnemonic, m.CreatedAt, m.RecallCount})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	merged := make(map[string]bool)
	var pairs [][2]string

	for i := 0; i < len(all); i++ {
		if merged[all[i].mnemonic] {
			continue
		}
		vecA, err := s.currentVector(ctx, all[i].mnemonic)
		if err != nil {
			return nil, err
		}
		if vecA == nil {
			continue
		}
		neighbors, err := s.knn(ctx, s.db, vecA, len(all))
		if err != nil {
			return nil, storeerr.Wrap(err, storeerr.BackendFailure, all[i].mnemonic, "automerge knn")
		}
		for j := i + 1; j < len(all); j++ {
			if merged[all[j].mnemonic] {
				continue
			}
			dist, found := distanceTo(neighbors, all[j].mnemonic)
			if !found || dist > threshold {
				continue
			}

			keep, discard := automergeTieBreak(all[i].mnemonic, all[i].createdAt, all[i].recallCount,
				all[j].mnemonic, all[j].createdAt, all[j].recallCount)

			pairs = append(pairs, [2]string{keep, discard})
			if dryRun {
				continue
			}
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return nil, storeerr.Wrap(err, storeerr.BackendFailure, keep, "begin automerge transaction")
			}
			if err := s.mergeTx(ctx, tx, keep, discard); err != nil {
				tx.Rollback()
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, storeerr.Wrap(err, storeerr.BackendFailure, keep, "commit automerge")
			}
			merged[discard] = true
			if discard == all[i].mnemonic {
				break // all[i] no longer exists; stop pairing it
			}
		}
	}

	s.log.WithFields(logrus.Fields{
		"operation": "automerge",
		"dry_run":   dryRun,
		"pairs":     len(pairs),
		"duration":  time.Since(start),
	}).Info("automerge completed")

	return pairs, nil
}

func (s *Store) currentVector(ctx context.Context, mnemonic string) ([]float32, error) {
	// vec0 doesn't support point lookups directly as float32 output, but
	// a self-KNN with k=1 against itself is avoided here: instead reuse
	// the metadata-side embedding by re-embedding content, since the
	// Store never caches raw vectors outside the index.
	mem, err := s.getMemory(ctx, s.db, mnemonic)
	if err != nil || mem == nil {
		return nil, err
	}
	vec, err := s.embedder.Embed(ctx, mem.Mnemonic+embedInputSeparator+mem.Content)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.ModelFailure, mnemonic, "re-embed for automerge scan")
	}
	return vec, nil
}

func distanceTo(neighbors []neighbor, mnemonic string) (float64, bool) {
	for _, n := range neighbors {
		if n.Mnemonic == mnemonic {
			return n.Distance, true
		}
	}
	return 0, false
}

func automergeTieBreak(aMnemonic string, aCreated time.Time, aRecall int, bMnemonic string, bCreated time.Time, bRecall int) (keep, discard string) {
	type candidate struct {
		mnemonic string
		created  time.Time
		recall   int
	}
	cands := []candidate{{aMnemonic, aCreated, aRecall}, {bMnemonic, bCreated, bRecall}}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].recall != cands[j].recall {
			return cands[i].recall > cands[j].recall
		}
		if !cands[i].created.Equal(cands[j].created) {
			return cands[i].created.Before(cands[j].created)
		}
		return cands[i].mnemonic < cands[j].mnemonic
	})
	return cands[0].mnemonic, cands[1].mnemonic
}
