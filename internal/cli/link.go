package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/trivia/internal/model"
)

func init() {
	linkCmd := &cobra.Command{
		Use:   "link [source] [target] [link-type]",
		Short: "Create a directed link between two memories",
		Args:  cobra.ExactArgs(3),
		Run:   runLink,
	}
	RootCmd.AddCommand(linkCmd)

	unlinkCmd := &cobra.Command{
		Use:   "unlink [source] [target] [link-type]",
		Short: "Remove a directed link between two memories",
		Args:  cobra.ExactArgs(3),
		Run:   runUnlink,
	}
	RootCmd.AddCommand(unlinkCmd)

	linksCmd := &cobra.Command{
		Use:   "links [mnemonic]",
		Short: "List links touching a memory",
		Args:  cobra.ExactArgs(1),
		Run:   runLinks,
	}
	RootCmd.AddCommand(linksCmd)
}

func runLink(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Link(cmd.Context(), args[0], args[1], model.LinkType(args[2])); err != nil {
		exitErr("link", err)
	}
	fmt.Println("linked")
}

func runUnlink(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Unlink(cmd.Context(), args[0], args[1], model.LinkType(args[2])); err != nil {
		exitErr("unlink", err)
	}
	fmt.Println("unlinked")
}

func runLinks(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	links, err := s.Links(cmd.Context(), args[0])
	if err != nil {
		exitErr("links", err)
	}

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(links); err != nil {
			exitErr("encode links", err)
		}
		return
	}

	for _, l := range links {
		fmt.Printf("%s --%s--> %s\n", l.Source, l.LinkType, l.Target)
	}
}
