package store

import (
	"context"
	"fmt"
	"sort"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/rcliao/trivia/internal/embedding"
)

// neighbor is one row of a KNN query: a mnemonic and its L2 distance
// from the query vector.
type neighbor struct {
	Mnemonic string
	Distance float64
}

func (s *Store) migrateVectorIndex(dims int) error {
	ddl := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(mnemonic TEXT PRIMARY KEY, embedding float[%d])`,
		dims,
	)
	_, err := s.db.Exec(ddl)
	return err
}

// upsertVector replaces any existing vector for mnemonic. vec0 has no
// ON CONFLICT support, so this deletes then inserts, matching the
// pattern the pack's sqlite-vec-backed vector store uses.
func (s *Store) upsertVector(ctx context.Context, tx queryer, mnemonic string, vec embedding.Vector) error {
	blob, err := sqlite_vec.SerializeFloat32(vec)
	if err != nil {
		return fmt.Errorf("serialize embedding: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE mnemonic = ?`, mnemonic); err != nil {
		return fmt.Errorf("delete existing vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO vectors(mnemonic, embedding) VALUES (?, ?)`, mnemonic, blob); err != nil {
		return fmt.Errorf("insert vector: %w", err)
	}
	return nil
}

// removeVector deletes the vector for mnemonic, if any.
func (s *Store) removeVector(ctx context.Context, tx queryer, mnemonic string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE mnemonic = ?`, mnemonic)
	return err
}

// knn returns the k nearest neighbors to query in ascending distance
// order, ties broken by mnemonic lexicographically.
func (s *Store) knn(ctx context.Context, q queryer, query embedding.Vector, k int) ([]neighbor, error) {
	if k <= 0 {
		return nil, nil
	}
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT mnemonic, distance FROM vectors WHERE embedding MATCH ? AND k = ? ORDER BY distance`,
		blob, k)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	var out []neighbor
	for rows.Next() {
		var n neighbor
		if err := rows.Scan(&n.Mnemonic, &n.Distance); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// vec0 accepts only ORDER BY distance, so equal distances are ordered here.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Mnemonic < out[j].Mnemonic
	})
	return out, nil
}

// vectorCount reports how many memory rows exist (each has exactly one
// vector), used to decide whether knn is meaningful at all (an empty
// store must never error).
func (s *Store) vectorCount(ctx context.Context, q queryer) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}
