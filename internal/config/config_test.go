package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiscoverFindsTomlWalkingUp(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "trivia.toml")
	toml := `
[memorize]
tags = ["project-x"]

[recall]
tags = ["project-x", "backend"]
`
	if err := os.WriteFile(tomlPath, []byte(toml), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	sub := filepath.Join(dir, "deep", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cfg, found, err := Discover(sub)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if found == "" {
		t.Fatal("expected trivia.toml to be found")
	}
	if len(cfg.Memorize.Tags) != 1 || cfg.Memorize.Tags[0] != "project-x" {
		t.Errorf("expected memorize.tags [project-x], got %v", cfg.Memorize.Tags)
	}
	if len(cfg.Recall.Tags) != 2 {
		t.Errorf("expected 2 recall tags, got %v", cfg.Recall.Tags)
	}
}

func TestDiscoverReturnsDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, found, err := Discover(dir)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if found != "" {
		t.Errorf("expected no file found, got %q", found)
	}
	if len(cfg.Memorize.Tags) != 0 {
		t.Errorf("expected empty default tags, got %v", cfg.Memorize.Tags)
	}
	if cfg.Database == "" {
		t.Error("expected a default database path")
	}
}

func TestMergeTags(t *testing.T) {
	got := MergeTags([]string{"a", "b"}, []string{"b", "c"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestLoadDatabaseField(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "trivia.toml")
	if err := os.WriteFile(tomlPath, []byte(`database = "/tmp/my.db"`+"\n"), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}

	cfg, err := Load(tomlPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database != "/tmp/my.db" {
		t.Errorf("expected database '/tmp/my.db', got %q", cfg.Database)
	}
}

func TestValidateRejectsNegativeMinScore(t *testing.T) {
	cfg := &Config{Database: "x.db", Recall: RecallConfig{MinScore: -1}}
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Error("expected validation error for negative min_score")
	}
}
