package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	mergeCmd := &cobra.Command{
		Use:   "merge [keep] [discard]",
		Short: "Merge discard into keep, unioning tags and links",
		Args:  cobra.ExactArgs(2),
		Run:   runMerge,
	}
	RootCmd.AddCommand(mergeCmd)

	automergeCmd := &cobra.Command{
		Use:   "automerge",
		Short: "Find and merge near-duplicate memories",
		Run:   runAutomerge,
	}
	automergeCmd.Flags().Float64("threshold", 0, "L2 distance threshold (0 uses the store default)")
	automergeCmd.Flags().Bool("dry-run", false, "Report pairs without merging")
	RootCmd.AddCommand(automergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Merge(cmd.Context(), args[0], args[1]); err != nil {
		exitErr("merge", err)
	}
	fmt.Println("merged")
}

func runAutomerge(cmd *cobra.Command, args []string) {
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pairs, err := s.Automerge(cmd.Context(), threshold, dryRun)
	if err != nil {
		exitErr("automerge", err)
	}

	for _, p := range pairs {
		if dryRun {
			fmt.Printf("would merge %s <- %s\n", p[0], p[1])
		} else {
			fmt.Printf("merged %s <- %s\n", p[0], p[1])
		}
	}
}
