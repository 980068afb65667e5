package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Erase all memory for a user",
		Long:  "Erase the user's short-term items, long-term cognitive model, and vector index entries.",
		Run:   runClear,
	})
}

func runClear(cmd *cobra.Command, args []string) {
	coord, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer coord.Close()

	coord.ClearUser(cmd.Context(), userFlag)
	fmt.Println("ok")
}
