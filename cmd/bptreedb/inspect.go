package main

import (
	"os"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the tree's node structure for debugging",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		return tree.Print(os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
