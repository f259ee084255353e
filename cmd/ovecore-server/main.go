package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/ovecore-go/internal/infra/buildinfo"
	"github.com/yndnr/ovecore-go/internal/infra/confloader"
	"github.com/yndnr/ovecore-go/internal/server/config"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "ovecore-server",
		Usage:   "OVE core instance: sections, spaces and the display hub",
		Version: buildinfo.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				EnvVars: []string{"OVECORE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "spaces",
				Usage: "Path to the spaces catalog (overrides spaces.file)",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides server.http.addr)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides log.level)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, loader, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(c.Context, cfg, loader)
		},
		Commands: []*cli.Command{
			{
				Name:  "check-config",
				Usage: "Validate the configuration and spaces catalog, then exit",
				Action: func(c *cli.Context) error {
					cfg, _, err := loadConfig(c)
					if err != nil {
						return err
					}
					catalog, err := config.LoadSpaces(cfg.Spaces.File)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "configuration OK (%d spaces)\n", len(catalog))
					return nil
				},
			},
		},
	}
}

// loadConfig layers defaults, the config file, OVECORE_* variables and
// command-line overrides, then validates the result.
func loadConfig(c *cli.Context) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	overrides := map[string]any{}
	if v := c.String("spaces"); v != "" {
		overrides["spaces.file"] = v
	}
	if v := c.String("addr"); v != "" {
		overrides["server.http.addr"] = v
	}
	if v := c.String("log-level"); v != "" {
		overrides["log.level"] = v
	}

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}
