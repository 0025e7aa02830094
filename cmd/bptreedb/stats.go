package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tree size, depth, and cache hit rate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := openTree()
		if err != nil {
			return err
		}
		defer tree.Close()

		stats := tree.CacheStats()
		fmt.Printf("size:     %d\n", tree.Size())
		fmt.Printf("depth:    %d\n", tree.Depth())
		fmt.Printf("cache:    refs=%d misses=%d hit_rate=%.4f\n", stats.Refs(), stats.Misses(), stats.HitRate())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
