// Package main is the entry point for the dittogrid CLI.
//
// Usage:
//
//	dittogrid [flags] <command> [args]
//
// Commands:
//
//	init     - Write a default configuration file
//	put      - Store a local file (or stdin) under a name
//	append   - Append a local file (or stdin) to a stored file
//	get      - Copy a stored file to a local file or stdout
//	cat      - Print a byte range of a stored file
//	lines    - Print a stored file line by line
//	ls       - List stored file names
//	stat     - Show the record of a stored file
//	exists   - Report whether a file is stored
//	rm       - Remove stored files
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittogrid/cmd/dittogrid/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := commands.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, commands.ErrSilent) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
