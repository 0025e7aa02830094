package main

import (
	"fmt"
	"os"

	"bptreedb/pkg/bptree"

	"github.com/spf13/cobra"
)

var (
	filePath   string
	slotCount  int
	cacheSize  int
	compact    bool
	backendArg string
)

var rootCmd = &cobra.Command{
	Use:   "bptreedb",
	Short: "Inspect and drive an on-disk B+ tree index",
	Long: `bptreedb opens a B+ tree index file backed by pkg/bptree and lets
you insert, look up, scan, compact, and inspect it from the shell.

Every subcommand operates on uint64 keys and uint64 values, the
engine's built-in fixed-width codec.`,
	Version: "0.1.0",
}

// Execute runs the root command, printing any error to stderr and
// exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "bptreedb: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "index file path (required; use :memory: for a scratch tree)")
	rootCmd.PersistentFlags().IntVar(&slotCount, "slots", bptree.DefaultOptions.SlotCount, "per-node slot count; must match the value the file was created with")
	rootCmd.PersistentFlags().IntVar(&cacheSize, "cache-size", bptree.DefaultOptions.CacheSize, "resident node cache capacity")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", bptree.DefaultOptions.Compact, "write without slot padding, only honored on a fresh file")
	rootCmd.PersistentFlags().StringVar(&backendArg, "backend", "file", "byte-stream backend: file or mmap")
	rootCmd.MarkPersistentFlagRequired("file")
}

func openTree() (*bptree.BPlusTree[bptree.Uint64, bptree.Uint64], error) {
	backend := bptree.BackendFile
	if backendArg == "mmap" {
		backend = bptree.BackendMMap
	}
	opts := bptree.Options{
		SlotCount: slotCount,
		CacheSize: cacheSize,
		Compact:   compact,
		Backend:   backend,
	}
	return bptree.OpenFile[bptree.Uint64, bptree.Uint64](filePath, bptree.Uint64Codec{}, bptree.Uint64Codec{}, opts)
}
