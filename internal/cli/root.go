// Package cli implements the trivia CLI commands.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcliao/trivia/internal/config"
	"github.com/rcliao/trivia/internal/embedding"
	"github.com/rcliao/trivia/internal/store"
)

var (
	dbPath      string
	formatFlag  string
	verbose     bool
	reembedFlag bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "trivia",
	Short: "Semantic memory for AI coding assistants",
	Long:  "Trivia stores short notes an assistant can recall by meaning, not just keyword. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (overrides discovered config)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	RootCmd.PersistentFlags().BoolVar(&reembedFlag, "reembed", false, "Allow opening a database embedded under a different model version, re-embedding every memory with the current embedder")
}

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// loadConfig discovers trivia.toml from the working directory (or
// CLAUDE_PLUGIN_ROOT, if set), then applies --db / TRIVIA_DB overrides.
func loadConfig() (*config.Config, error) {
	start, _ := os.Getwd()
	if root, ok := config.PluginRoot(); ok {
		start = root
	}

	cfg, _, err := config.Discover(start)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database = dbPath
	}
	return cfg, nil
}

func openStore() (*store.Store, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	embedder, err := embedding.NewFromConfig(
		os.Getenv("TRIVIA_EMBEDDER"),
		os.Getenv("TRIVIA_EMBEDDER_MODEL"),
		os.Getenv("TRIVIA_EMBEDDER_TOKENIZER"),
	)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(cfg.Database, embedder, store.WithLogger(newLogger()), store.WithReembed(reembedFlag))
	if err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
