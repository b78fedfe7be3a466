package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/trivia/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [mnemonic]",
		Short: "Update a memory's content, tags, or mnemonic",
		Args:  cobra.ExactArgs(1),
		Run:   runUpdate,
	}
	cmd.Flags().StringP("content", "c", "", "New content")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated replacement tags")
	cmd.Flags().String("rename", "", "New mnemonic")
	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	mnemonic := args[0]

	content, _ := cmd.Flags().GetString("content")
	tagsFlag, _ := cmd.Flags().GetString("tags")
	rename, _ := cmd.Flags().GetString("rename")

	var p store.UpdateParams
	if cmd.Flags().Changed("content") {
		p.Content = &content
	}
	if cmd.Flags().Changed("tags") {
		tags := splitTags(tagsFlag)
		p.Tags = &tags
	}
	p.NewMnemonic = rename

	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Update(cmd.Context(), mnemonic, p); err != nil {
		exitErr("update", err)
	}
	fmt.Println("updated")
}
