package main

import (
	"fmt"

	"bptreedb/pkg/stream"

	"github.com/spf13/cobra"
)

var compactCmd = &cobra.Command{
	Use:   "compact <dest>",
	Short: "Write a padding-free copy of the tree to dest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		dst, err := stream.OpenFile(args[0])
		if err != nil {
			return err
		}
		defer dst.Close()

		if err := tree.CompactTo(dst); err != nil {
			return err
		}

		size, err := dst.Size()
		if err != nil {
			return err
		}
		fmt.Printf("compacted %d keys into %s (%d bytes)\n", tree.Size(), args[0], size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
