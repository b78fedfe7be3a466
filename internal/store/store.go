// Package store implements Trivia's Memory Store: the Metadata Store,
// Vector Index, Scorer and public Facade operations, all backed by one
// SQLite database file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/rcliao/trivia/internal/embedding"
	"github.com/rcliao/trivia/internal/model"
	"github.com/rcliao/trivia/internal/storeerr"
)

func init() {
	sqlite_vec.Auto()
}

// Named weight constants for the composite Scorer. Exact values are a
// contract the test suite checks; tuning them is a redesign decision.
const (
	WeightSimilarity = 0.60
	WeightRecency    = 0.15
	WeightFrequency  = 0.10
	LinkBoostPerLink = 0.02
	LinkBoostMax     = 5
	RatingBoostScale = 0.05
	TagBoostValue    = 0.10

	RecencyHalfLifeDays = 30.0
	FrequencySaturation = 100.0
)

// Default thresholds for automatic behavior during memorize (spec §4.5,
// §9). Overridable per Store for deterministic testing.
const (
	DefaultAutomergeThreshold = 0.25
	DefaultAutolinkThreshold  = 0.6
	DefaultAutolinkK          = 5
)

// schemaVersion tracks the on-disk table layout (spec §6.2: "schema is
// versioned; migrations run at open"). Bump when migrate()'s DDL
// changes shape in a way existing rows can't simply grow into.
const schemaVersion = 1

// embedInputSeparator joins mnemonic and content before embedding, per
// the resolved Open Question in spec §9: the mnemonic carries meaningful
// signal for recall.
const embedInputSeparator = "\n"

// mergeSeparator joins discard's content onto keep's on merge/auto-merge
// (spec §9's resolved Open Question).
const mergeSeparator = "\n\n---\n\n"

// Store is the Memory Store facade: the single public entry point
// composing the Embedder, Vector Index, Metadata Store and Scorer.
type Store struct {
	db       *sql.DB
	embedder embedding.Embedder
	log      *logrus.Logger

	// memorizeMu serializes memorize calls so the auto-merge/auto-link
	// neighbor query observes a consistent set of prior memories (spec §5).
	memorizeMu sync.Mutex

	automergeThreshold float64
	autolinkThreshold  float64
	autolinkK          int

	reembed bool
}

// Option configures optional Store behavior.
type Option func(*Store)

// WithLogger attaches a structured logger. A nil logger (the default)
// discards all output.
func WithLogger(log *logrus.Logger) Option {
	return func(s *Store) {
		if log == nil {
			log = discardLogger()
		}
		s.log = log
	}
}

// discardLogger is the actual zero-option default: library callers get
// silent operation unless they opt into output via WithLogger.
func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// WithAutomergeThreshold overrides the default auto-merge distance
// threshold used by memorize's pre-check and the batch automerge op.
func WithAutomergeThreshold(d float64) Option {
	return func(s *Store) { s.automergeThreshold = d }
}

// WithAutolinkThreshold overrides the default auto-link distance
// threshold used by memorize's post-insert pass.
func WithAutolinkThreshold(d float64) Option {
	return func(s *Store) { s.autolinkThreshold = d }
}

// WithAutolinkK overrides the neighbor count considered by the
// auto-link pass.
func WithAutolinkK(k int) Option {
	return func(s *Store) { s.autolinkK = k }
}

// WithReembed allows Open to proceed against a database embedded under
// a different model version, re-embedding every existing memory with
// the Store's current Embedder instead of refusing to load (spec
// §6.2).
func WithReembed(reembed bool) Option {
	return func(s *Store) { s.reembed = reembed }
}

// Open creates or opens a Trivia database at dbPath, migrating its
// schema (including the vec0 vector index) and wiring the given
// Embedder.
func Open(dbPath string, embedder embedding.Embedder, opts ...Option) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// The vec0 virtual table and WAL mode both behave best behind a
	// single connection, matching the single-writer model in spec §5.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:                 db,
		embedder:           embedder,
		log:                discardLogger(),
		automergeThreshold: DefaultAutomergeThreshold,
		autolinkThreshold:  DefaultAutolinkThreshold,
		autolinkK:          DefaultAutolinkK,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(embedder.Dimensions()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if err := s.checkVersion(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(dims int) error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		mnemonic         TEXT PRIMARY KEY,
		content          TEXT NOT NULL,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		recall_count     INTEGER NOT NULL DEFAULT 0,
		last_recalled_at TEXT,
		useful_count     INTEGER NOT NULL DEFAULT 0,
		not_useful_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS memory_tags (
		mnemonic TEXT NOT NULL REFERENCES memories(mnemonic),
		tag      TEXT NOT NULL,
		PRIMARY KEY (mnemonic, tag)
	);
	CREATE INDEX IF NOT EXISTS idx_memory_tags_tag ON memory_tags(tag);

	CREATE TABLE IF NOT EXISTS memory_links (
		source     TEXT NOT NULL REFERENCES memories(mnemonic),
		target     TEXT NOT NULL REFERENCES memories(mnemonic),
		link_type  TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (source, target, link_type)
	);
	CREATE INDEX IF NOT EXISTS idx_memory_links_target ON memory_links(target);

	CREATE TABLE IF NOT EXISTS store_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	return s.migrateVectorIndex(dims)
}

const metaKeySchemaVersion = "schema_version"
const metaKeyModelVersion = "model_version"

func (s *Store) getMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM store_meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// checkVersion enforces spec §6.2: a fresh database records the current
// schema and model version; a database previously embedded under a
// different model version refuses to load unless the Store was opened
// with WithReembed(true), in which case every existing memory is
// re-embedded under the current model before the version marker is
// updated.
func (s *Store) checkVersion(ctx context.Context) error {
	modelVersion := s.embedder.ModelVersion()

	storedSchema, ok, err := s.getMeta(ctx, metaKeySchemaVersion)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if !ok {
		if err := s.setMeta(ctx, metaKeySchemaVersion, fmt.Sprintf("%d", schemaVersion)); err != nil {
			return fmt.Errorf("write schema version: %w", err)
		}
		if err := s.setMeta(ctx, metaKeyModelVersion, modelVersion); err != nil {
			return fmt.Errorf("write model version: %w", err)
		}
		return nil
	}
	if storedSchema != fmt.Sprintf("%d", schemaVersion) {
		return errIntegrity(fmt.Sprintf("database schema version %q is incompatible with this build's schema version %d", storedSchema, schemaVersion))
	}

	storedModel, ok, err := s.getMeta(ctx, metaKeyModelVersion)
	if err != nil {
		return fmt.Errorf("read model version: %w", err)
	}
	if !ok || storedModel == modelVersion {
		return s.setMeta(ctx, metaKeyModelVersion, modelVersion)
	}

	if !s.reembed {
		return errIntegrity(fmt.Sprintf("database was embedded with model %q, current embedder is %q; re-open with --reembed to re-embed existing memories", storedModel, modelVersion))
	}

	if err := s.reembedAll(ctx); err != nil {
		return fmt.Errorf("reembed: %w", err)
	}
	return s.setMeta(ctx, metaKeyModelVersion, modelVersion)
}

// reembedAll re-embeds every stored memory's vector under the Store's
// current Embedder. Called only when opened with WithReembed(true)
// against a database embedded under a different model version.
func (s *Store) reembedAll(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT mnemonic, content FROM memories`)
	if err != nil {
		return err
	}
	type pair struct{ mnemonic, content string }
	var pairs []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.mnemonic, &p.content); err != nil {
			rows.Close()
			return err
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, p := range pairs {
		vec, err := s.embedder.Embed(ctx, p.mnemonic+embedInputSeparator+p.content)
		if err != nil {
			return fmt.Errorf("re-embed %q: %w", p.mnemonic, err)
		}
		if err := s.upsertVector(ctx, s.db, p.mnemonic, vec); err != nil {
			return fmt.Errorf("store re-embedded vector for %q: %w", p.mnemonic, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"operation": "reembed",
		"memories":  len(pairs),
	}).Info("reembed completed")
	return nil
}

func errIntegrity(msg string) error {
	return storeerr.New(storeerr.IntegrityViolation, "", msg)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

const memoryColumns = `mnemonic, content, created_at, updated_at, recall_count, last_recalled_at, useful_count, not_useful_count`

func scanMemory(row scanner) (model.Memory, error) {
	var m model.Memory
	var createdAt, updatedAt string
	var lastRecalledAt sql.NullString

	err := row.Scan(
		&m.Mnemonic, &m.Content, &createdAt, &updatedAt,
		&m.RecallCount, &lastRecalledAt, &m.UsefulCount, &m.NotUsefulCount,
	)
	if err != nil {
		return m, err
	}

	m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastRecalledAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastRecalledAt.String)
		m.LastRecalledAt = &t
	}
	return m, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) loadTags(ctx context.Context, q queryer, mnemonic string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT tag FROM memory_tags WHERE mnemonic = ? ORDER BY tag`, mnemonic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *Store) memoryExists(ctx context.Context, q queryer, mnemonic string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM memories WHERE mnemonic = ?`, mnemonic).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) getMemory(ctx context.Context, q queryer, mnemonic string) (*model.Memory, error) {
	row := q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE mnemonic = ?`, mnemonic)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tags, err := s.loadTags(ctx, q, mnemonic)
	if err != nil {
		return nil, err
	}
	m.Tags = tags
	return &m, nil
}
