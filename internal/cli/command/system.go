package command

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// SystemCommand returns the system subcommand group.
func SystemCommand() *cli.Command {
	return &cli.Command{
		Name:    "system",
		Aliases: []string{"sys"},
		Usage:   "Server probes",
		Subcommands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check server health",
				Action: systemProbe("/health"),
			},
			{
				Name:   "ready",
				Usage:  "Check whether the server accepts logins",
				Action: systemProbe("/ready"),
			},
		},
	}
}

func systemProbe(path string) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx, cancel := withTimeout(c, 0)
		defer cancel()

		client, err := NewClient(c)
		if err != nil {
			return err
		}
		var result map[string]any
		if err := client.GetJSON(ctx, path, &result); err != nil {
			return fmt.Errorf("%s: %w", client.BaseURL(), err)
		}
		return render(c, result, nil)
	}
}
