package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pairhub-go/internal/cli/connection"
	"github.com/yndnr/pairhub-go/internal/cli/output"
)

// EventsCommand returns the events subcommand group.
func EventsCommand() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Observe session events",
		Subcommands: []*cli.Command{
			{
				Name:  "watch",
				Usage: "Stream status and pairing-code events until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "Only events for this tenant"},
					&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "Stop after N events (0 = unlimited)"},
				},
				Action: eventsWatch,
			},
		},
	}
}

type streamEvent struct {
	ID          string       `json:"id"`
	Type        string       `json:"type"`
	TenantID    string       `json:"tenant_id"`
	Status      string       `json:"status,omitempty"`
	PairingCode *pairingCode `json:"pairing_code,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	Error       string       `json:"error,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

var errEnoughEvents = errors.New("event limit reached")

func eventsWatch(c *cli.Context) error {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return err
	}

	path := "/events"
	if tenant := c.String("tenant"); tenant != "" {
		path += "?tenant_id=" + url.QueryEscape(tenant)
	}

	client, err := NewClient(c)
	if err != nil {
		return err
	}

	limit := c.Int("count")
	seen := 0
	w := writer(c)

	err = client.Stream(c.Context, path, func(ev connection.Event) error {
		var se streamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}

		if format == output.FormatTable {
			detail := se.Reason
			if se.PairingCode != nil {
				detail = "code " + se.PairingCode.Raw
			}
			if se.Error != "" {
				detail = se.Error
			}
			fmt.Fprintf(w, "%s  %-20s  %-12s  %-16s  %s\n",
				time.UnixMilli(se.Timestamp).Local().Format("15:04:05.000"),
				se.TenantID, se.Type, output.Cell(se.Status), detail)
		} else if err := output.NewFormatter(format).Format(w, se); err != nil {
			return err
		}

		seen++
		if limit > 0 && seen >= limit {
			return errEnoughEvents
		}
		return nil
	})
	if errors.Is(err, errEnoughEvents) {
		return nil
	}
	return err
}
