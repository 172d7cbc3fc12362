// Command datatable creates, checks and maintains data table files.
//
// Usage:
//
//	datatable [-config file] [-dev] [-v] <command> [flags] [args]
//
// Commands:
//
//	schemas              list the row types tables can hold
//	new -schema T path   create an empty table
//	check path           decode a table and validate its schema
//	fmt [-n] path        rewrite a table in canonical form
//	dump path            print the decoded rows
//	lint patterns...     statically check row types in Go packages
//	watch [-metrics addr] path
//	                     reload a table whenever its file changes
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	exitFunc(code)
}
