package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/personaflow/tieredmem/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "remember [content]",
		Short: "Ingest a conversation event",
		Long:  "Ingest a conversation event into short-term memory. Content can be a positional arg or piped via stdin.",
		Run:   runRemember,
	}

	cmd.Flags().StringP("role", "r", "user", "Event role: user or assistant")
	cmd.Flags().Bool("force", false, "Summarize immediately, ignoring the token threshold")

	RootCmd.AddCommand(cmd)
}

func runRemember(cmd *cobra.Command, args []string) {
	role, _ := cmd.Flags().GetString("role")
	force, _ := cmd.Flags().GetBool("force")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
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
		exitErr("remember", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	coord, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer coord.Close()

	events := []memory.Event{{
		Role:    role,
		Content: strings.TrimSpace(content),
		Time:    time.Now(),
	}}
	coord.Update(cmd.Context(), events, userFlag, force)

	items := coord.ShortTerm().Recent(cmd.Context(), userFlag, 0)
	fmt.Printf("ok (%d short-term items)\n", len(items))
}
