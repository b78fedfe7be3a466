package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rcliao/trivia/internal/chunker"
	"github.com/rcliao/trivia/internal/store"
)

var mnemonicColor = color.New(color.FgCyan, color.Bold)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Recall memories ranked by relevance to query",
		Args:  cobra.ExactArgs(1),
		Run:   runRecall,
	}
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags to filter by")
	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	query := args[0]
	limit, _ := cmd.Flags().GetInt("limit")
	tagsFlag, _ := cmd.Flags().GetString("tags")

	s, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	results, err := s.Recall(cmd.Context(), store.RecallParams{
		Query:     query,
		Limit:     limit,
		TagFilter: splitTags(tagsFlag),
		BoostTags: cfg.Recall.Tags,
		MinScore:  cfg.Recall.MinScore,
	})
	if err != nil {
		exitErr("recall", err)
	}

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			exitErr("encode results", err)
		}
		return
	}

	for _, r := range results {
		body := r.Content
		if cfg.Recall.BodyMaxChars > 0 {
			body = chunker.Excerpt(body, cfg.Recall.BodyMaxChars)
		}
		mnemonicColor.Printf("%s", r.Mnemonic)
		fmt.Printf("  (score %.3f)\n%s\n\n", r.Score, body)
	}
}
