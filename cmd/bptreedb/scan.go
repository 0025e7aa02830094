package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scanReverse bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Iterate every key in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		if scanReverse {
			for cur := tree.RBegin(); cur.Valid(); {
				fmt.Printf("%d -> %d\n", cur.Key(), cur.Value())
				if err := cur.Next(); err != nil {
					return err
				}
			}
			return nil
		}

		for cur := tree.Begin(); cur.Valid(); {
			fmt.Printf("%d -> %d\n", cur.Key(), cur.Value())
			if err := cur.Next(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanReverse, "reverse", false, "iterate from the largest key down")
	rootCmd.AddCommand(scanCmd)
}
