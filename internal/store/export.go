package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/trivia/internal/model"
	"github.com/rcliao/trivia/internal/storeerr"
)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slug lowercases s, collapses runs of non-alphanumeric characters to a
// single hyphen, and trims leading/trailing hyphens.
func slug(s string) string {
	lowered := strings.ToLower(s)
	collapsed := slugNonAlnum.ReplaceAllString(lowered, "-")
	return strings.Trim(collapsed, "-")
}

type frontmatter struct {
	Mnemonic    string   `yaml:"mnemonic"`
	Tags        []string `yaml:"tags"`
	CreatedAt   string   `yaml:"created_at"`
	UpdatedAt   string   `yaml:"updated_at"`
	RecallCount int      `yaml:"recall_count"`
}

type exportLink struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	LinkType string `yaml:"link_type"`
}

// Export writes one Markdown file per matching memory (YAML frontmatter
// + verbatim content body) plus a links.yaml sidecar, per the bit-exact
// contract in spec_full §6.3.
func (s *Store) Export(ctx context.Context, dir string, tagFilter []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, "", "create export directory")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY mnemonic`)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, "", "list memories for export")
	}
	var memories []model.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			rows.Close()
			return err
		}
		memories = append(memories, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	filter := make(map[string]bool, len(tagFilter))
	for _, t := range normalizeTags(tagFilter) {
		filter[t] = true
	}

	used := make(map[string]int)
	for i := range memories {
		tags, err := s.loadTags(ctx, s.db, memories[i].Mnemonic)
		if err != nil {
			return err
		}
		memories[i].Tags = tags

		if len(filter) > 0 && !anyTagMatches(tags, filter) {
			continue
		}

		fm := frontmatter{
			Mnemonic:    memories[i].Mnemonic,
			Tags:        tags,
			CreatedAt:   memories[i].CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt:   memories[i].UpdatedAt.UTC().Format(time.RFC3339),
			RecallCount: memories[i].RecallCount,
		}
		fmBytes, err := yaml.Marshal(fm)
		if err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, memories[i].Mnemonic, "marshal frontmatter")
		}

		base := slug(memories[i].Mnemonic)
		name := base + ".md"
		for used[name] > 0 {
			used[base]++
			name = fmt.Sprintf("%s-%d.md", base, used[base])
		}
		used[name]++

		body := "---\n" + string(fmBytes) + "---\n\n" + memories[i].Content
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return storeerr.Wrap(err, storeerr.BackendFailure, memories[i].Mnemonic, "write export file")
		}
	}

	links, err := s.loadLinks(ctx, s.db, ``)
	if err != nil {
		return err
	}
	exportLinks := make([]exportLink, 0, len(links))
	for _, l := range links {
		exportLinks = append(exportLinks, exportLink{Source: l.Source, Target: l.Target, LinkType: string(l.LinkType)})
	}
	linksBytes, err := yaml.Marshal(exportLinks)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, "", "marshal links sidecar")
	}
	if err := os.WriteFile(filepath.Join(dir, "links.yaml"), linksBytes, 0o644); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, "", "write links sidecar")
	}

	return nil
}

// Import reads a directory produced by Export (or matching its shape)
// and re-creates memories and links. For each file, a missing mnemonic
// is inserted and an existing one is overwritten only when the file's
// updated_at is strictly newer; links are recreated only when both
// endpoints exist after all files are processed. Returns the number of
// memories inserted or overwritten.
func (s *Store) Import(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, storeerr.Wrap(err, storeerr.BackendFailure, "", "read import directory")
	}

	imported := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return imported, storeerr.Wrap(err, storeerr.BackendFailure, e.Name(), "read import file")
		}
		fm, body, err := parseFrontmatter(string(raw))
		if err != nil {
			return imported, storeerr.Wrap(err, storeerr.InvalidInput, e.Name(), "parse frontmatter")
		}

		existing, err := s.getMemory(ctx, s.db, fm.Mnemonic)
		if err != nil {
			return imported, err
		}
		incomingUpdated, _ := time.Parse(time.RFC3339, fm.UpdatedAt)

		if existing == nil {
			if err := s.insertImported(ctx, fm.Mnemonic, body, fm.Tags, fm.CreatedAt, fm.UpdatedAt, fm.RecallCount); err != nil {
				return imported, err
			}
			imported++
		} else if incomingUpdated.After(existing.UpdatedAt) {
			if err := s.updateImported(ctx, fm.Mnemonic, body, fm.Tags, fm.UpdatedAt, fm.RecallCount); err != nil {
				return imported, err
			}
			imported++
		}
	}

	linksRaw, err := os.ReadFile(filepath.Join(dir, "links.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return imported, nil
		}
		return imported, storeerr.Wrap(err, storeerr.BackendFailure, "", "read links sidecar")
	}
	var links []exportLink
	if err := yaml.Unmarshal(linksRaw, &links); err != nil {
		return imported, storeerr.Wrap(err, storeerr.InvalidInput, "", "parse links sidecar")
	}
	for _, l := range links {
		sourceExists, err := s.memoryExists(ctx, s.db, l.Source)
		if err != nil {
			return imported, err
		}
		targetExists, err := s.memoryExists(ctx, s.db, l.Target)
		if err != nil {
			return imported, err
		}
		if !sourceExists || !targetExists {
			continue
		}
		if err := s.Link(ctx, l.Source, l.Target, model.LinkType(l.LinkType)); err != nil {
			return imported, err
		}
	}

	return imported, nil
}

// insertImported inserts a memory directly, bypassing Memorize's
// auto-merge pre-check: import's contract ("if mnemonic exists, prefer
// the newer updated_at; otherwise insert") is a plain upsert, not
// content-similarity deduplication. createdAt/updatedAt/recallCount come
// straight from the export's frontmatter so the round-trip contract in
// spec §8 ("timestamps preserved") holds; a blank or unparsable
// timestamp falls back to the current time rather than failing import.
func (s *Store) insertImported(ctx context.Context, mnemonic, content string, tags []string, createdAt, updatedAt string, recallCount int) error {
	vec, err := s.embedder.Embed(ctx, mnemonic+embedInputSeparator+content)
	if err != nil {
		return storeerr.Wrap(err, storeerr.ModelFailure, mnemonic, "embed imported content")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "begin transaction")
	}
	defer tx.Rollback()

	if err := s.insertMemoryAt(ctx, tx, mnemonic, content, normalizeTags(tags), vec,
		normalizeImportTimestamp(createdAt), normalizeImportTimestamp(updatedAt), recallCount); err != nil {
		return err
	}

	return tx.Commit()
}

// updateImported overwrites an existing memory's content/tags in place
// and stamps updated_at/recall_count from the incoming frontmatter
// instead of Update's own time.Now() stamping, preserving import's
// round-trip timestamp contract.
func (s *Store) updateImported(ctx context.Context, mnemonic, content string, tags []string, updatedAt string, recallCount int) error {
	vec, err := s.embedder.Embed(ctx, mnemonic+embedInputSeparator+content)
	if err != nil {
		return storeerr.Wrap(err, storeerr.ModelFailure, mnemonic, "embed imported content")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "begin transaction")
	}
	defer tx.Rollback()

	if err := s.upsertVector(ctx, tx, mnemonic, vec); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "upsert vector")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_tags WHERE mnemonic = ?`, mnemonic); err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "clear tags")
	}
	if err := s.insertTags(ctx, tx, mnemonic, normalizeTags(tags)); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE memories SET content = ?, updated_at = ?, recall_count = ? WHERE mnemonic = ?`,
		content, normalizeImportTimestamp(updatedAt), recallCount, mnemonic)
	if err != nil {
		return storeerr.Wrap(err, storeerr.BackendFailure, mnemonic, "update imported memory")
	}

	return tx.Commit()
}

// normalizeImportTimestamp parses an RFC3339 frontmatter timestamp,
// falling back to the current time if it is blank or unparsable.
func normalizeImportTimestamp(ts string) string {
	if ts == "" {
		return time.Now().UTC().Format(time.RFC3339)
	}
	if _, err := time.Parse(time.RFC3339, ts); err != nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return ts
}

func parseFrontmatter(raw string) (frontmatter, string, error) {
	const delim = "---\n"
	if !strings.HasPrefix(raw, delim) {
		return frontmatter{}, "", fmt.Errorf("missing frontmatter delimiter")
	}
	rest := raw[len(delim):]
	end := strings.Index(rest, delim)
	if end < 0 {
		return frontmatter{}, "", fmt.Errorf("unterminated frontmatter")
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return frontmatter{}, "", err
	}
	body := strings.TrimPrefix(rest[end+len(delim):], "\n")
	return fm, body, nil
}
