package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/trivia/internal/config"
)

func init() {
	cmd := &cobra.Command{
		Use:   "memorize [mnemonic] [content]",
		Short: "Store a memory under a mnemonic",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Args:  cobra.RangeArgs(1, 2),
		Run:   runMemorize,
	}
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")
	RootCmd.AddCommand(cmd)
}

func runMemorize(cmd *cobra.Command, args []string) {
	mnemonic := args[0]

	var content string
	if len(args) > 1 {
		content = args[1]
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	if strings.TrimSpace(content) == "" {
		exitErr("memorize", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	tagsFlag, _ := cmd.Flags().GetString("tags")

	s, cfg, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	tags := config.MergeTags(cfg.Memorize.Tags, splitTags(tagsFlag))

	canonical, err := s.Memorize(cmd.Context(), mnemonic, strings.TrimSpace(content), tags)
	if err != nil {
		exitErr("memorize", err)
	}
	fmt.Println(canonical)
}
