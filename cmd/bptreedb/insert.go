package main

import (
	"fmt"
	"strconv"

	"bptreedb/pkg/bptree"

	"github.com/spf13/cobra"
)

var insertCmd = &cobra.Command{
	Use:   "insert <key> <value>",
	Short: "Insert a key/value pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse key: %w", err)
		}
		val, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse value: %w", err)
		}

		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		_, inserted, err := tree.Insert(bptree.Uint64(key), bptree.Uint64(val))
		if err != nil {
			return err
		}
		if !inserted {
			fmt.Printf("key %d already present, not overwritten\n", key)
			return nil
		}
		fmt.Printf("inserted %d -> %d (size=%d)\n", key, val, tree.Size())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insertCmd)
}
