package main

import (
	"errors"
	"fmt"
	"strconv"

	"bptreedb/pkg/bptree"

	"github.com/spf13/cobra"
)

var findCmd = &cobra.Command{
	Use:   "find <key>",
	Short: "Look up a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("parse key: %w", err)
		}

		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		cur, err := tree.Find(bptree.Uint64(key))
		if err != nil {
			return err
		}
		if !cur.Valid() || uint64(cur.Key()) != key {
			return errors.New("key not found")
		}
		fmt.Printf("%d -> %d\n", key, cur.Value())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
}
