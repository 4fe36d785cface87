package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pairhub-go/internal/cli/config"
	"github.com/yndnr/pairhub-go/internal/cli/connection"
	"github.com/yndnr/pairhub-go/internal/cli/output"
	"github.com/yndnr/pairhub-go/internal/infra/buildinfo"
	"github.com/yndnr/pairhub-go/internal/infra/tlsroots"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:                 "pairhub-cli",
		Usage:                "PairHub tenant session management tool",
		Version:              buildinfo.String(),
		Flags:                globalFlags(),
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			TenantCommand(),
			EventsCommand(),
			SystemCommand(),
		},
		Before: applyConfigFile,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "PairHub server address (e.g., localhost:5080)",
			EnvVars: []string{"PAIRHUB_SERVER"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Aliases: []string{"k"},
			Usage:   "API key for authentication",
			EnvVars: []string{"PAIRHUB_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"PAIRHUB_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "ca-file",
			Usage:   "Additional CA bundle for https servers",
			EnvVars: []string{"PAIRHUB_CA_FILE"},
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: 30 * time.Second,
		},
	}
}

// applyConfigFile fills global flags that were not given on the command
// line or through the environment.
func applyConfigFile(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	defaults := map[string]string{
		"server":  cfg.Server,
		"api-key": cfg.APIKey,
		"output":  cfg.Output,
	}
	for name, value := range defaults {
		if c.IsSet(name) || value == "" {
			continue
		}
		if err := c.Set(name, value); err != nil {
			return err
		}
	}
	return nil
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server   string
	APIKey   string
	Output   string
	CAFile   string
	Insecure bool
	Timeout  time.Duration
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:   c.String("server"),
		APIKey:   c.String("api-key"),
		Output:   c.String("output"),
		CAFile:   c.String("ca-file"),
		Insecure: c.Bool("insecure"),
		Timeout:  c.Duration("timeout"),
	}
}

// NewClient returns an HTTP client for the configured server.
func NewClient(c *cli.Context) (*connection.HTTPClient, error) {
	flags := ParseGlobalFlags(c)
	client := connection.NewHTTPClient(flags.Server, flags.APIKey)
	if flags.CAFile != "" || flags.Insecure {
		tlsConfig, err := tlsroots.ClientConfig(flags.CAFile, flags.Insecure)
		if err != nil {
			return nil, err
		}
		client.SetTLSConfig(tlsConfig)
	}
	return client, nil
}

// render writes data in the selected format. In table mode a non-nil table
// func takes precedence over the generic key/value view.
func render(c *cli.Context, data any, table func() *output.Table) error {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}
	w := writer(c)
	if format == output.FormatTable && table != nil {
		return table().Render(w)
	}
	return output.NewFormatter(format).Format(w, data)
}

func writer(c *cli.Context) io.Writer {
	if c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

// requireArgs checks the positional argument count.
func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("expected %d argument(s): %s", n, c.Command.ArgsUsage)
	}
	return nil
}
