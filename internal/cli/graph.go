package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the full memory graph (nodes and edges)",
		Run:   runGraph,
	}
	RootCmd.AddCommand(graphCmd)

	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "List tags and their usage counts",
		Run:   runTags,
	}
	RootCmd.AddCommand(tagsCmd)
}

func runGraph(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	g, err := s.Graph(cmd.Context())
	if err != nil {
		exitErr("graph", err)
	}

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(g); err != nil {
			exitErr("encode graph", err)
		}
		return
	}

	for _, n := range g.Nodes {
		fmt.Printf("%s  %v\n", n.Mnemonic, n.Tags)
	}
	for _, e := range g.Edges {
		fmt.Printf("%s --%s--> %s\n", e.Source, e.LinkType, e.Target)
	}
}

func runTags(cmd *cobra.Command, args []string) {
	s, _, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tags, err := s.ListTags(cmd.Context())
	if err != nil {
		exitErr("tags", err)
	}

	if formatFlag == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tags); err != nil {
			exitErr("encode tags", err)
		}
		return
	}

	for _, t := range tags {
		fmt.Printf("%-30s %d\n", t.Tag, t.Count)
	}
}
