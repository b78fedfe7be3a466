package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	exportCmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Export memories to a directory as markdown files",
		Args:  cobra.ExactArgs(1),
		Run:   runExport,
	}
	exportCmd.Flags().StringP("tags", "t", "", "Comma-separated tags to filter by")
	RootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Import memories from a previously exported directory",
		Args:  cobra.ExactArgs(1),
		Run:   runImport,
	}
	RootCmd.AddCommand(importCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	tagsFlag, _ := cmd.Flags().GetString("tags")

	s, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tags := splitTags(tagsFlag)
	if len(tags) == 0 {
		tags = cfg.Export.Tags
	}

	if err := s.Export(cmd.Context(), args[0], tags); err != nil {
		exitErr("export", err)
	}
	fmt.Println("exported")
}

func runImport(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	n, err := s.Import(cmd.Context(), args[0])
	if err != nil {
		exitErr("import", err)
	}
	fmt.Printf("imported %d memories\n", n)
}
