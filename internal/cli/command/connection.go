package command

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// ConnectionCommand returns the connection subcommand group.
func ConnectionCommand() *cli.Command {
	return &cli.Command{
		Name:    "connection",
		Aliases: []string{"conn"},
		Usage:   "Manage space connections",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List connections",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "space", Usage: "Only connections involving this space"},
				},
				Action: connectionList,
			},
			{
				Name:      "create",
				Usage:     "Mirror a primary space onto a secondary space",
				ArgsUsage: "PRIMARY SECONDARY",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "primary-host", Usage: "Instance holding the primary space (default: this instance)"},
					&cli.StringFlag{Name: "secondary-host", Usage: "Instance holding the secondary space (default: this instance)"},
					&cli.StringFlag{Name: "protocol", Usage: "Protocol of the given hosts", Value: "http"},
				},
				Action: connectionCreate,
			},
			{
				Name:      "delete",
				Usage:     "Remove a connection, or every connection of the primary",
				ArgsUsage: "PRIMARY [SECONDARY]",
				Action:    connectionDelete,
			},
			{
				Name:      "section",
				Usage:     "Show the connection a section belongs to",
				ArgsUsage: "SECTION_ID",
				Action:    connectionSection,
			},
		},
	}
}

func connectionList(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	q := url.Values{}
	if space := c.String("space"); space != "" {
		q.Set("space", space)
	}
	var conns []*domain.Connection
	if err := newClient(c).Get(ctx, "/connections", q, &conns); err != nil {
		return err
	}
	return render(c, connectionRows(conns))
}

func connectionCreate(c *cli.Context) error {
	primary, secondary := c.Args().Get(0), c.Args().Get(1)
	if primary == "" || secondary == "" {
		return fmt.Errorf("PRIMARY and SECONDARY are required")
	}

	body := map[string]any{}
	if host := c.String("primary-host"); host != "" {
		body["primary"] = map[string]string{"host": host, "protocol": c.String("protocol")}
	}
	if host := c.String("secondary-host"); host != "" {
		body["secondary"] = map[string]string{"host": host, "protocol": c.String("protocol")}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var conn domain.Connection
	p := "/connection/" + url.PathEscape(primary) + "/" + url.PathEscape(secondary)
	if err := newClient(c).Post(ctx, p, nil, body, &conn); err != nil {
		return err
	}
	printf(c, "Connected %s -> %s (%d sections mirrored)\n", primary, secondary, len(conn.SectionMap))
	return renderMachine(c, &conn)
}

func connectionDelete(c *cli.Context) error {
	primary := c.Args().Get(0)
	if primary == "" {
		return fmt.Errorf("PRIMARY is required")
	}
	p := "/connection/" + url.PathEscape(primary)
	if secondary := c.Args().Get(1); secondary != "" {
		p += "/" + url.PathEscape(secondary)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := newClient(c).Delete(ctx, p, nil, nil); err != nil {
		return err
	}
	printf(c, "Disconnected %s\n", primary)
	return nil
}

func connectionSection(c *cli.Context) error {
	id, err := argInt(c, 0, "SECTION_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var conn domain.Connection
	if err := newClient(c).Get(ctx, "/connections/section/"+strconv.Itoa(id), nil, &conn); err != nil {
		return err
	}
	if conn.Primary.Space == "" {
		printf(c, "Section %d is not part of a connection\n", id)
		return renderMachine(c, struct{}{})
	}
	return render(c, connectionRows{&conn})
}
