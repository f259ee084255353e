package command

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/urfave/cli/v2"
)

// SpaceCommand returns the space subcommand group.
func SpaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "space",
		Usage: "Inspect spaces",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List spaces and their clients (--wide for client regions)",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "section", Usage: "Only the space of this section", Value: -1},
				},
				Action: spaceList,
			},
			{
				Name:      "geometry",
				Usage:     "Show the bounding size of a space",
				ArgsUsage: "SPACE",
				Action:    spaceGeometry,
			},
		},
	}
}

func spaceList(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	q := url.Values{}
	if id := c.Int("section"); id >= 0 {
		q.Set("oveSectionId", strconv.Itoa(id))
	}
	var spaces spaceRows
	if err := newClient(c).Get(ctx, "/spaces", q, &spaces); err != nil {
		return err
	}
	return render(c, spaces)
}

func spaceGeometry(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("SPACE is required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	result := sizeResult{Space: name}
	if err := newClient(c).Get(ctx, "/spaces/"+url.PathEscape(name)+"/geometry", nil, &result.Size); err != nil {
		return err
	}
	return render(c, result)
}
