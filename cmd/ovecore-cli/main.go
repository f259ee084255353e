// Package main provides the entry point for ovecore-cli.
//
// ovecore-cli is the command-line management tool for an OVE core
// instance: it lays out sections, manages groups and connections and
// inspects spaces over the REST API.
//
// Usage:
//
//	ovecore-cli --server localhost:8080 section list
//	ovecore-cli -o json space geometry LobbyWall
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/ovecore-go/internal/cli/command"
)

func main() {
	if err := command.App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
