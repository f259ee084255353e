package command

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ovecore-go/internal/cli/connection"
	"github.com/yndnr/ovecore-go/internal/cli/output"
	"github.com/yndnr/ovecore-go/internal/infra/buildinfo"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Instance status commands",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the instance is serving",
				Action: systemHealth,
			},
			{
				Name:   "ready",
				Usage:  "Check that the instance and its peers are ready",
				Action: systemReady,
			},
			{
				Name:   "version",
				Usage:  "Show client build information",
				Action: systemVersion,
			},
		},
	}
}

func systemHealth(c *cli.Context) error {
	return systemStatus(c, "/health", "healthy")
}

func systemReady(c *cli.Context) error {
	return systemStatus(c, "/ready", "ready")
}

func systemStatus(c *cli.Context, path, want string) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	client := newClient(c)
	var result statusResult
	err := client.Get(ctx, path, nil, &result)

	// /ready answers 503 with a reason when a dependency is down.
	var apiErr *connection.APIError
	if errors.As(err, &apiErr) {
		result = statusResult{Status: "not " + want, Reason: apiErr.Message}
	} else if err != nil {
		return fmt.Errorf("%s unreachable: %w", client.BaseURL(), err)
	}

	if ParseGlobalFlags(c).Output != string(output.FormatTable) {
		if err := render(c, result); err != nil {
			return err
		}
	} else if result.Status == want {
		fmt.Fprintf(c.App.Writer, "✓ %s is %s\n", client.BaseURL(), want)
	} else {
		fmt.Fprintf(c.App.Writer, "✗ %s is %s: %s\n", client.BaseURL(), result.Status, result.Reason)
	}

	if result.Status != want {
		return fmt.Errorf("instance is %s", result.Status)
	}
	return nil
}

func systemVersion(c *cli.Context) error {
	info := buildinfo.Get()
	if ParseGlobalFlags(c).Output != string(output.FormatTable) {
		return render(c, info)
	}
	fmt.Fprintf(c.App.Writer, "ovecore-cli %s\n", buildinfo.String())
	return nil
}
