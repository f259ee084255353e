package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ovecore-go/internal/cli/output"
	"github.com/yndnr/ovecore-go/internal/core/domain"
)

// SectionCommand returns the section subcommand group.
func SectionCommand() *cli.Command {
	return &cli.Command{
		Name:    "section",
		Aliases: []string{"sec"},
		Usage:   "Manage sections",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List sections",
				Flags: append(scopeFlags(),
					&cli.StringFlag{Name: "geometry", Usage: "Only sections intersecting x,y,w,h"},
					&cli.BoolFlag{Name: "app-states", Usage: "Fetch the current application states"},
				),
				Action: sectionList,
			},
			{
				Name:      "get",
				Usage:     "Show one section and its client layout",
				ArgsUsage: "SECTION_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "app-states", Usage: "Fetch the current application state"},
				},
				Action: sectionGet,
			},
			{
				Name:   "create",
				Usage:  "Create a section",
				Flags:  sectionBodyFlags(true),
				Action: sectionCreate,
			},
			{
				Name:      "update",
				Usage:     "Update a section",
				ArgsUsage: "SECTION_ID",
				Flags: append(sectionBodyFlags(false),
					&cli.BoolFlag{Name: "clear-app", Usage: "Unbind the application"},
				),
				Action: sectionUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete one section, or every section in scope when no id is given",
				ArgsUsage: "[SECTION_ID]",
				Flags:     scopeFlags(),
				Action:    sectionDelete,
			},
			{
				Name:  "transform",
				Usage: "Scale and translate sections in place",
				Flags: append(scopeFlags(),
					&cli.Float64Flag{Name: "scale-x", Usage: "Horizontal scale factor"},
					&cli.Float64Flag{Name: "scale-y", Usage: "Vertical scale factor"},
					&cli.Float64Flag{Name: "translate-x", Usage: "Horizontal offset"},
					&cli.Float64Flag{Name: "translate-y", Usage: "Vertical offset"},
				),
				Action: sectionTransform,
			},
			{
				Name:  "move",
				Usage: "Move sections to another space",
				Flags: append(scopeFlags(),
					&cli.StringFlag{Name: "to", Usage: "Target space", Required: true},
				),
				Action: sectionMove,
			},
			{
				Name:      "refresh",
				Usage:     "Ask displays to reload one section, or every section in scope",
				ArgsUsage: "[SECTION_ID]",
				Flags:     scopeFlags(),
				Action:    sectionRefresh,
			},
		},
	}
}

func sectionBodyFlags(create bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "space", Usage: "Space name", Required: create},
		&cli.Float64Flag{Name: "x", Usage: "Left edge in space coordinates"},
		&cli.Float64Flag{Name: "y", Usage: "Top edge in space coordinates"},
		&cli.Float64Flag{Name: "w", Usage: "Width", Required: create},
		&cli.Float64Flag{Name: "h", Usage: "Height", Required: create},
		&cli.StringFlag{Name: "app-url", Usage: "Application URL"},
		&cli.StringFlag{Name: "app-state", Usage: "Initial application state as JSON"},
	}
}

// sectionBody builds the POST body from the flags that were set. A new
// section always carries all four coordinates.
func sectionBody(c *cli.Context, create bool) (map[string]any, error) {
	body := map[string]any{}
	if c.IsSet("space") {
		body["space"] = c.String("space")
	}
	for _, name := range []string{"x", "y", "w", "h"} {
		if create || c.IsSet(name) {
			body[name] = c.Float64(name)
		}
	}

	if c.Bool("clear-app") {
		body["app"] = nil
		return body, nil
	}
	if appURL := c.String("app-url"); appURL != "" {
		app := map[string]any{"url": appURL}
		if state := c.String("app-state"); state != "" {
			if !json.Valid([]byte(state)) {
				return nil, fmt.Errorf("--app-state is not valid JSON")
			}
			app["state"] = json.RawMessage(state)
		}
		body["app"] = app
	} else if c.IsSet("app-state") {
		return nil, fmt.Errorf("--app-state needs --app-url")
	}
	return body, nil
}

func sectionPath(id int, suffix ...string) string {
	return path.Join(append([]string{"/sections", strconv.Itoa(id)}, suffix...)...)
}

func sectionList(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	q := scopeQuery(c)
	if geometry := c.String("geometry"); geometry != "" {
		q.Set("geometry", geometry)
	}
	if c.Bool("app-states") {
		q.Set("includeAppStates", "true")
	}

	var sections []*domain.Section
	if err := newClient(c).Get(ctx, "/sections", q, &sections); err != nil {
		return err
	}
	return render(c, sectionRows(sections))
}

func sectionGet(c *cli.Context) error {
	id, err := argInt(c, 0, "SECTION_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	q := url.Values{}
	if c.Bool("app-states") {
		q.Set("includeAppStates", "true")
	}
	var section domain.Section
	if err := newClient(c).Get(ctx, sectionPath(id), q, &section); err != nil {
		return err
	}

	printf(c, "Section %d in %s at %s,%s %sx%s\n", section.ID, section.Space,
		output.Float(section.X), output.Float(section.Y), output.Float(section.W), output.Float(section.H))
	if section.App != nil {
		printf(c, "App: %s\n", section.App.URL)
	}
	printf(c, "\n")
	return render(c, sectionDetail{&section})
}

func sectionCreate(c *cli.Context) error {
	body, err := sectionBody(c, true)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idResult
	if err := newClient(c).Post(ctx, "/section", nil, body, &result); err != nil {
		return err
	}
	printf(c, "Section %d created\n", result.ID)
	return renderMachine(c, result)
}

func sectionUpdate(c *cli.Context) error {
	id, err := argInt(c, 0, "SECTION_ID")
	if err != nil {
		return err
	}
	body, err := sectionBody(c, false)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return fmt.Errorf("nothing to update")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idResult
	if err := newClient(c).Post(ctx, sectionPath(id), nil, body, &result); err != nil {
		return err
	}
	printf(c, "Section %d updated\n", result.ID)
	return renderMachine(c, result)
}

func sectionDelete(c *cli.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	client := newClient(c)

	if c.NArg() > 0 {
		id, err := argInt(c, 0, "SECTION_ID")
		if err != nil {
			return err
		}
		var result idResult
		if err := client.Delete(ctx, sectionPath(id), nil, &result); err != nil {
			return err
		}
		printf(c, "Section %d deleted\n", result.ID)
		return renderMachine(c, result)
	}

	var result idsResult
	if err := client.Delete(ctx, "/sections", scopeQuery(c), &result); err != nil {
		return err
	}
	printf(c, "%d sections deleted\n", len(result.IDs))
	return renderMachine(c, result)
}

func sectionTransform(c *cli.Context) error {
	body := map[string]any{}
	if c.IsSet("scale-x") || c.IsSet("scale-y") {
		body["scale"] = domain.Point{X: flagOr(c, "scale-x", 1), Y: flagOr(c, "scale-y", 1)}
	}
	if c.IsSet("translate-x") || c.IsSet("translate-y") {
		body["translate"] = domain.Point{X: flagOr(c, "translate-x", 0), Y: flagOr(c, "translate-y", 0)}
	}
	if len(body) == 0 {
		return fmt.Errorf("set --scale-x/--scale-y or --translate-x/--translate-y")
	}
	return bulk(c, "/sections/transform", body, "transformed")
}

func sectionMove(c *cli.Context) error {
	return bulk(c, "/sections/moveTo", map[string]string{"space": c.String("to")}, "moved")
}

func sectionRefresh(c *cli.Context) error {
	if c.NArg() == 0 {
		return bulk(c, "/sections/refresh", nil, "refreshed")
	}

	id, err := argInt(c, 0, "SECTION_ID")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idResult
	if err := newClient(c).Post(ctx, sectionPath(id, "refresh"), nil, nil, &result); err != nil {
		return err
	}
	printf(c, "Section %d refreshed\n", result.ID)
	return renderMachine(c, result)
}

// bulk posts a scoped operation and reports the affected ids.
func bulk(c *cli.Context, p string, body any, verb string) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	var result idsResult
	if err := newClient(c).Post(ctx, p, scopeQuery(c), body, &result); err != nil {
		return err
	}
	printf(c, "%d sections %s\n", len(result.IDs), verb)
	if ParseGlobalFlags(c).Wide {
		return render(c, result)
	}
	return renderMachine(c, result)
}

func flagOr(c *cli.Context, name string, def float64) float64 {
	if c.IsSet(name) {
		return c.Float64(name)
	}
	return def
}

// renderMachine writes data only for json and yaml output; table output
// has already printed a summary line.
func renderMachine(c *cli.Context, data any) error {
	if ParseGlobalFlags(c).Output == "table" {
		return nil
	}
	return render(c, data)
}
