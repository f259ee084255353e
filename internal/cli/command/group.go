package command

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ovecore-go/internal/cli/output"
	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// GroupCommand returns the group subcommand group.
func GroupCommand() *cli.Command {
	return &cli.Command{
		Name:    "group",
		Aliases: []string{"grp"},
		Usage:   "Manage section groups",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List groups",
				Action: groupList,
			},
			{
				Name:      "get",
				Usage:     "Show the sections of a group",
				ArgsUsage: "GROUP_ID",
				Action:    groupGet,
			},
			{
				Name:      "create",
				Usage:     "Create a group from section ids",
				ArgsUsage: "SECTION_ID...",
				Action:    groupCreate,
			},
			{
				Name:      "update",
				Usage:     "Replace the sections of a group",
				ArgsUsage: "GROUP_ID SECTION_ID...",
				Action:    groupUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a group (its sections are kept)",
				ArgsUsage: "GROUP_ID",
				Action:    groupDelete,
			},
		},
	}
}

func groupPath(id int) string {
	return "/groups/" + strconv.Itoa(id)
}

func groupList(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var groups []*domain.Group
	if err := newClient(c).Get(ctx, "/groups", nil, &groups); err != nil {
		return err
	}
	return render(c, groupRows(groups))
}

func groupGet(c *cli.Context) error {
	id, err := argInt(c, 0, "GROUP_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var sections []int
	if err := newClient(c).Get(ctx, groupPath(id), nil, &sections); err != nil {
		return err
	}
	if ParseGlobalFlags(c).Output == string(output.FormatTable) {
		return render(c, groupRows{{ID: id, Sections: sections}})
	}
	return render(c, sections)
}

func groupCreate(c *cli.Context) error {
	ids, err := argInts(c, 0, "SECTION_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idResult
	if err := newClient(c).Post(ctx, "/group", nil, ids, &result); err != nil {
		return err
	}
	printf(c, "Group %d created with sections %s\n", result.ID, output.Ints(ids))
	return renderMachine(c, result)
}

func groupUpdate(c *cli.Context) error {
	id, err := argInt(c, 0, "GROUP_ID")
	if err != nil {
		return err
	}
	ids, err := argInts(c, 1, "SECTION_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idResult
	if err := newClient(c).Post(ctx, groupPath(id), nil, ids, &result); err != nil {
		return err
	}
	printf(c, "Group %d now holds sections %s\n", result.ID, output.Ints(ids))
	return renderMachine(c, result)
}

func groupDelete(c *cli.Context) error {
	id, err := argInt(c, 0, "GROUP_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idResult
	if err := newClient(c).Delete(ctx, groupPath(id), nil, &result); err != nil {
		return err
	}
	printf(c, "Group %d deleted\n", result.ID)
	return renderMachine(c, result)
}
