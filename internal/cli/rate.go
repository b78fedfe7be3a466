package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rate [mnemonic] [useful|not-useful]",
		Short: "Record feedback on a memory",
		Args:  cobra.ExactArgs(2),
		Run:   runRate,
	}
	RootCmd.AddCommand(cmd)
}

func runRate(cmd *cobra.Command, args []string) {
	mnemonic, verdict := args[0], args[1]

	var useful bool
	switch verdict {
	case "useful":
		useful = true
	case "not-useful":
		useful = false
	default:
		exitErr("rate", fmt.Errorf("verdict must be 'useful' or 'not-useful', got %q", verdict))
	}

	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Rate(cmd.Context(), mnemonic, useful); err != nil {
		exitErr("rate", err)
	}
	fmt.Println("rated")
}
