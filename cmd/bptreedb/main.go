// Command bptreedb is the test harness and inspection tool for the
// bptree engine: open or create an index file, insert/find/scan keys,
// and compact or inspect it from the shell.
package main

func main() {
	Execute()
}
