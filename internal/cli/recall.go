package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall [query]",
		Short: "Retrieve memories relevant to a query",
		Long:  "Run unified retrieval over short-term items and long-term dynamic entries, returning a JSON list of the best matches.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRecall,
	}

	cmd.Flags().Bool("reflexive", false, "Keyword-only recall over short-term items")
	cmd.Flags().Bool("deep", false, "Embedding-backed deep search with scores")

	RootCmd.AddCommand(cmd)
}

func runRecall(cmd *cobra.Command, args []string) {
	reflexive, _ := cmd.Flags().GetBool("reflexive")
	deep, _ := cmd.Flags().GetBool("deep")
	query := strings.Join(args, " ")

	coord, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer coord.Close()

	ctx := cmd.Context()
	switch {
	case reflexive:
		items := coord.Retriever().ReflexiveRecall(ctx, query, userFlag)
		if len(items) == 0 {
			fmt.Println("[]")
			return
		}
		b, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(b))
	case deep:
		fragments := coord.Retriever().DeepThought(ctx, query, userFlag)
		if len(fragments) == 0 {
			fmt.Println("[]")
			return
		}
		b, _ := json.MarshalIndent(fragments, "", "  ")
		fmt.Println(string(b))
	default:
		out := coord.Retrieve(ctx, query, userFlag)
		if out == "" {
			fmt.Println("[]")
			return
		}
		fmt.Println(out)
	}
}
