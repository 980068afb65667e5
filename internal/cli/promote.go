package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "promote",
		Short: "Drain overflowing short-term items into the cognitive model",
		Run:   runPromote,
	})
}

func runPromote(cmd *cobra.Command, args []string) {
	coord, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer coord.Close()

	coord.CheckAndPromote(cmd.Context(), userFlag)

	items := coord.ShortTerm().Recent(cmd.Context(), userFlag, 0)
	fmt.Printf("ok (%d short-term items remain)\n", len(items))
}
