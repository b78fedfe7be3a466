package store

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rcliao/trivia/internal/model"
	"github.com/rcliao/trivia/internal/storeerr"
)

// RecallParams configures a recall() call.
type RecallParams struct {
	Query     string
	Limit     int
	TagFilter []string
	BoostTags []string
	MinScore  float64 // optional post-rank floor (spec_full §12); 0 disables
}

// Recall embeds the query, oversamples nearest neighbors, hydrates and
// filters them, scores and sorts, then touches recall_count /
// last_recalled_at for every returned memory in one transaction.
func (s *Store) Recall(ctx context.Context, p RecallParams) ([]model.ScoredMemory, error) {
	start := time.Now()
	if p.Limit <= 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "begin transaction")
	}
	defer tx.Rollback()

	count, err := s.vectorCount(ctx, tx)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "count memories")
	}
	if count == 0 {
		return nil, nil
	}

	vec, err := s.embedder.Embed(ctx, p.Query)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.ModelFailure, "", "embed recall query")
	}

	oversample := p.Limit * 4
	if oversample < 20 {
		oversample = 20
	}

	neighbors, err := s.knn(ctx, tx, vec, oversample)
	if err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "recall knn")
	}

	boost := make(map[string]bool, len(p.BoostTags))
	for _, t := range normalizeTags(p.BoostTags) {
		boost[t] = true
	}
	filter := make(map[string]bool, len(p.TagFilter))
	for _, t := range normalizeTags(p.TagFilter) {
		filter[t] = true
	}

	now := time.Now().UTC()
	var candidates []model.ScoredMemory
	for _, n := range neighbors {
		mem, err := s.getMemory(ctx, tx, n.Mnemonic)
		if err != nil {
			return nil, storeerr.Wrap(err, storeerr.BackendFailure, n.Mnemonic, "hydrate candidate")
		}
		if mem == nil {
			continue // vector outlived its metadata row; skip rather than fail the whole recall
		}

		if len(filter) > 0 && !anyTagMatches(mem.Tags, filter) {
			continue
		}

		degree, err := s.linkDegree(ctx, tx, mem.Mnemonic)
		if err != nil {
			return nil, storeerr.Wrap(err, storeerr.BackendFailure, mem.Mnemonic, "count link degree")
		}

		hasBoosted := anyTagMatches(mem.Tags, boost)

		total, sim := score(scoreInputs{
			Distance:       n.Distance,
			UpdatedAt:      mem.UpdatedAt,
			RecallCount:    mem.RecallCount,
			UsefulCount:    mem.UsefulCount,
			NotUsefulCount: mem.NotUsefulCount,
			HasBoostedTag:  hasBoosted,
			LinkDegree:     degree,
			Now:            now,
		})

		if p.MinScore > 0 && total < p.MinScore {
			continue
		}

		candidates = append(candidates, model.ScoredMemory{
			Memory:     *mem,
			Score:      total,
			Similarity: sim,
			LinkDegree: degree,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Mnemonic < candidates[j].Mnemonic
	})

	if len(candidates) > p.Limit {
		candidates = candidates[:p.Limit]
	}

	nowStr := now.Format(time.RFC3339)
	for _, c := range candidates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE memories SET recall_count = recall_count + 1, last_recalled_at = ? WHERE mnemonic = ?`,
			nowStr, c.Mnemonic); err != nil {
			return nil, storeerr.Wrap(err, storeerr.BackendFailure, c.Mnemonic, "bump recall counters")
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeerr.Wrap(err, storeerr.BackendFailure, "", "commit recall")
	}

	s.log.WithFields(logrus.Fields{
		"operation": "recall",
		"query":     p.Query,
		"results":   len(candidates),
		"duration":  time.Since(start),
	}).Info("recall completed")

	return candidates, nil
}

func anyTagMatches(tags []string, set map[string]bool) bool {
	if len(set) == 0 {
		return false
	}
	for _, t := range tags {
		if set[t] {
			return true
		}
	}
	return false
}

func (s *Store) linkDegree(ctx context.Context, q queryer, mnemonic string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memory_links WHERE source = ? OR target = ?`, mnemonic, mnemonic).Scan(&n)
	return n, err
}
