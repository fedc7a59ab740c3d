// Command todolist is a terminal todo list backed by SQLite or PostgreSQL.
// Run without arguments it opens the interactive list; the subcommands
// script the same store.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
