package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Run:   runStats,
	}
	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	s, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	st, err := s.Stats(cmd.Context(), cfg.Database)
	if err != nil {
		exitErr("stats", err)
	}

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			exitErr("encode stats", err)
		}
		return
	}

	fmt.Printf("database:      %s (%d bytes)\n", st.DBPath, st.DBSizeBytes)
	fmt.Printf("memories:      %d\n", st.TotalMemories)
	fmt.Printf("links:         %d\n", st.TotalLinks)
	fmt.Printf("distinct tags: %d\n", st.TotalTags)
	fmt.Println("top tags:")
	for _, t := range st.TopTags {
		fmt.Printf("  %-28s %d\n", t.Tag, t.Count)
	}
}
