package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Show the long-term cognitive model",
		Run:   runModel,
	}

	cmd.Flags().Bool("base", false, "Show only the stable base sections (Bedrock and Evolutionary)")
	cmd.Flags().String("section", "", "Show a single section: Bedrock, Evolutionary, or Dynamic")

	RootCmd.AddCommand(cmd)
}

func runModel(cmd *cobra.Command, args []string) {
	base, _ := cmd.Flags().GetBool("base")
	section, _ := cmd.Flags().GetString("section")

	coord, err := openCoordinator()
	if err != nil {
		exitErr("open", err)
	}
	defer coord.Close()

	ctx := cmd.Context()
	switch {
	case base:
		fmt.Println(coord.BaseMemory(ctx, userFlag))
	case section != "":
		fmt.Println(coord.LongTerm().Section(ctx, userFlag, section))
	default:
		model := coord.LongTerm().Model(ctx, userFlag)
		if model.IsEmpty() {
			fmt.Println("(empty)")
			return
		}
		fmt.Println(model.Encode())
	}
}
