package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "delete [mnemonic]",
		Short: "Delete a memory and its tags and links",
		Args:  cobra.ExactArgs(1),
		Run:   runDelete,
	}
	RootCmd.AddCommand(cmd)
}

func runDelete(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("delete", err)
	}
	fmt.Println("deleted")
}
