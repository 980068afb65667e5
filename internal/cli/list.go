package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List short-term memory items",
		Run:   runList,
	}

	cmd.Flags().IntP("limit", "l", 0, "Max items (0 = hot cache window)")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	coord, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer coord.Close()

	items := coord.ShortTerm().Recent(cmd.Context(), userFlag, limit)
	if len(items) == 0 {
		fmt.Println("[]")
		return
	}
	b, _ := json.MarshalIndent(items, "", "  ")
	fmt.Println(string(b))
}
