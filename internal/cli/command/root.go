package command

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ovecore-go/internal/cli/connection"
	"github.com/yndnr/ovecore-go/internal/cli/output"
	"github.com/yndnr/ovecore-go/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "ovecore-cli",
		Usage:   "Manage sections, groups and connections of an OVE core instance",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SectionCommand(),
			GroupCommand(),
			SpaceCommand(),
			ConnectionCommand(),
			SystemCommand(),
		},
		Before: func(c *cli.Context) error {
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Instance address (e.g., localhost:8080 or https://wall.example.com)",
			EnvVars: []string{"OVECORE_SERVER"},
			Value:   "localhost:8080",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			EnvVars: []string{"OVECORE_OUTPUT"},
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "Show wide output (more columns)",
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "Omit table headers",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: connection.DefaultTimeout,
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server    string
	Output    string
	Wide      bool
	NoHeaders bool
	Timeout   time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:    c.String("server"),
		Output:    c.String("output"),
		Wide:      c.Bool("wide"),
		NoHeaders: c.Bool("no-headers"),
		Timeout:   c.Duration("timeout"),
	}
}

// newClient builds the REST client for the selected instance.
func newClient(c *cli.Context) *connection.Client {
	flags := ParseGlobalFlags(c)
	return connection.NewClient(flags.Server, flags.Timeout)
}

// requestContext bounds one command's calls by --timeout.
func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout)
}

// render writes data in the selected output format.
func render(c *cli.Context, data any) error {
	flags := ParseGlobalFlags(c)
	format, err := output.ParseFormat(flags.Output)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		return (&output.TableFormatter{Wide: flags.Wide, NoHeaders: flags.NoHeaders}).Format(c.App.Writer, data)
	}
	return output.NewFormatter(format, flags.Wide).Format(c.App.Writer, data)
}

// printf writes a human-readable line unless a machine format is selected.
func printf(c *cli.Context, format string, args ...any) {
	if ParseGlobalFlags(c).Output != string(output.FormatTable) {
		return
	}
	fmt.Fprintf(c.App.Writer, format, args...)
}

// argInt parses the positional argument at i as a non-negative id.
func argInt(c *cli.Context, i int, name string) (int, error) {
	raw := c.Args().Get(i)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

// argInts parses every positional argument from i on as an id.
func argInts(c *cli.Context, from int, name string) ([]int, error) {
	var ids []int
	for i := from; i < c.NArg(); i++ {
		id, err := argInt(c, i, name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one %s is required", name)
	}
	return ids, nil
}

// scopeFlags select the sections of a bulk operation.
func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "space", Usage: "Limit to sections in this space"},
		&cli.IntFlag{Name: "group", Aliases: []string{"g"}, Usage: "Limit to sections in this group", Value: -1},
	}
}

// scopeQuery encodes --space and --group as query parameters.
func scopeQuery(c *cli.Context) url.Values {
	q := url.Values{}
	if space := c.String("space"); space != "" {
		q.Set("space", space)
	}
	if group := c.Int("group"); group >= 0 {
		q.Set("groupId", strconv.Itoa(group))
	}
	return q
}
