// Package command defines the ovecore-cli commands on urfave/cli/v2.
//
// Each command parses its flags, calls the REST API of one instance
// through connection.Client and renders the result with the formatter
// chosen by --output.
package command
