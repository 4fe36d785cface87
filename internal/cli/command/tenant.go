package command

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/pairhub-go/internal/cli/output"
	"github.com/yndnr/pairhub-go/internal/core/pairing"
)

// TenantCommand returns the tenant subcommand group.
func TenantCommand() *cli.Command {
	return &cli.Command{
		Name:    "tenant",
		Aliases: []string{"t"},
		Usage:   "Manage tenant sessions",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List tenant sessions",
				Action: tenantList,
			},
			{
				Name:      "login",
				Usage:     "Start a tenant session",
				ArgsUsage: "TENANT_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Block until connected"},
					&cli.DurationFlag{Name: "ready-timeout", Usage: "Override the server readiness timeout"},
				},
				Action: tenantLogin,
			},
			{
				Name:      "status",
				Usage:     "Show tenant status",
				ArgsUsage: "TENANT_ID",
				Action:    tenantStatus,
			},
			{
				Name:      "pairing-code",
				Aliases:   []string{"code"},
				Usage:     "Show the current pairing code",
				ArgsUsage: "TENANT_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Aliases: []string{"w"}, Usage: "Wait for a code to be issued"},
					&cli.StringFlag{Name: "png", Usage: "Write the QR image to `FILE`"},
				},
				Action: tenantPairingCode,
			},
			{
				Name:      "send-text",
				Usage:     "Send a text message",
				ArgsUsage: "TENANT_ID ADDRESS TEXT...",
				Action:    tenantSendText,
			},
			{
				Name:      "send-file",
				Usage:     "Send a file",
				ArgsUsage: "TENANT_ID ADDRESS PATH",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "caption", Usage: "Caption text"},
					&cli.StringFlag{Name: "mime", Usage: "MIME type (default: detected from the file name)"},
				},
				Action: tenantSendFile,
			},
			{
				Name:      "registered",
				Usage:     "Check whether an address is registered",
				ArgsUsage: "TENANT_ID ADDRESS",
				Action:    tenantRegistered,
			},
			{
				Name:      "logout",
				Usage:     "Log out a tenant and delete its credential",
				ArgsUsage: "TENANT_ID",
				Action:    tenantLogout,
			},
			{
				Name:      "close",
				Usage:     "Close a tenant session, keeping its credential",
				ArgsUsage: "TENANT_ID",
				Action:    tenantClose,
			},
		},
	}
}

type sessionInfo struct {
	TenantID    string       `json:"tenant_id"`
	Status      string       `json:"status"`
	PairingCode *pairingCode `json:"pairing_code,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
	Reconnects  int          `json:"reconnects"`
	CreatedAt   int64        `json:"created_at,omitempty"`
	UpdatedAt   int64        `json:"updated_at,omitempty"`
	RawState    string       `json:"raw_state,omitempty"`
}

type pairingCode struct {
	Raw      string `json:"raw"`
	Image    string `json:"image"`
	IssuedAt int64  `json:"issued_at"`
}

func tenantPath(tenantID, suffix string) string {
	return "/tenants/" + url.PathEscape(tenantID) + suffix
}

func getJSON(ctx context.Context, c *cli.Context, path string, target any) error {
	client, err := NewClient(c)
	if err != nil {
		return err
	}
	return client.GetJSON(ctx, path, target)
}

func postJSON(ctx context.Context, c *cli.Context, path string, body, target any) error {
	client, err := NewClient(c)
	if err != nil {
		return err
	}
	return client.PostJSON(ctx, path, body, target)
}

func withTimeout(c *cli.Context, extra time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Context, ParseGlobalFlags(c).Timeout+extra)
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04:05")
}

func tenantList(c *cli.Context) error {
	ctx, cancel := withTimeout(c, 0)
	defer cancel()

	var result struct {
		Items    []sessionInfo  `json:"items"`
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"by_status"`
	}
	if err := getJSON(ctx, c, "/tenants", &result); err != nil {
		return err
	}

	return render(c, result, func() *output.Table {
		table := &output.Table{Headers: []string{"TENANT", "STATUS", "RECONNECTS", "UPDATED", "LAST ERROR"}}
		for _, s := range result.Items {
			table.AddRow(s.TenantID, s.Status, fmt.Sprint(s.Reconnects), formatMillis(s.UpdatedAt), output.Cell(s.LastError))
		}
		return table
	})
}

func tenantLogin(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	readyTimeout := c.Duration("ready-timeout")
	extra := time.Duration(0)
	if c.Bool("wait") {
		// The server bounds the wait itself; leave room for it.
		extra = readyTimeout + 5*time.Minute
	}
	ctx, cancel := withTimeout(c, extra)
	defer cancel()

	body := map[string]any{"wait_for_ready": c.Bool("wait")}
	if readyTimeout > 0 {
		body["timeout_seconds"] = int(readyTimeout.Seconds())
	}

	var info sessionInfo
	if err := postJSON(ctx, c, tenantPath(c.Args().First(), "/login"), body, &info); err != nil {
		return err
	}

	return render(c, info, func() *output.Table {
		table := &output.Table{Headers: []string{"TENANT", "STATUS"}}
		table.AddRow(info.TenantID, info.Status)
		return table
	})
}

func tenantStatus(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, 0)
	defer cancel()

	var info sessionInfo
	if err := getJSON(ctx, c, tenantPath(c.Args().First(), "/status"), &info); err != nil {
		return err
	}
	return render(c, info, nil)
}

func tenantPairingCode(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	path := tenantPath(c.Args().First(), "/pairing-code")
	extra := time.Duration(0)
	if c.Bool("wait") {
		path += "?wait=true"
		extra = 5 * time.Minute
	}
	ctx, cancel := withTimeout(c, extra)
	defer cancel()

	var result struct {
		TenantID    string       `json:"tenant_id"`
		Status      string       `json:"status"`
		PairingCode *pairingCode `json:"pairing_code"`
	}
	if err := getJSON(ctx, c, path, &result); err != nil {
		return err
	}

	if file := c.String("png"); file != "" && result.PairingCode != nil {
		if err := writePNG(file, result.PairingCode.Image); err != nil {
			return err
		}
	}

	return render(c, result, func() *output.Table {
		table := &output.Table{Headers: []string{"TENANT", "STATUS", "CODE", "ISSUED"}}
		code, issued := "-", "-"
		if result.PairingCode != nil {
			code = result.PairingCode.Raw
			issued = formatMillis(result.PairingCode.IssuedAt)
		}
		table.AddRow(result.TenantID, result.Status, code, issued)
		return table
	})
}

func writePNG(path, dataURL string) error {
	encoded, ok := strings.CutPrefix(dataURL, pairing.DataURLPrefix)
	if !ok {
		return fmt.Errorf("pairing code has no PNG image")
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	return os.WriteFile(path, png, 0o600)
}

type receipt struct {
	ID        string `json:"id"`
	To        string `json:"to"`
	Timestamp int64  `json:"timestamp"`
}

func renderReceipt(c *cli.Context, r receipt) error {
	return render(c, r, func() *output.Table {
		table := &output.Table{Headers: []string{"MESSAGE ID", "TO", "SENT"}}
		table.AddRow(r.ID, r.To, formatMillis(r.Timestamp))
		return table
	})
}

func tenantSendText(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, 0)
	defer cancel()

	args := c.Args().Slice()
	body := map[string]string{
		"to":   args[1],
		"text": strings.Join(args[2:], " "),
	}

	var r receipt
	if err := postJSON(ctx, c, tenantPath(args[0], "/messages/text"), body, &r); err != nil {
		return err
	}
	return renderReceipt(c, r)
}

func tenantSendFile(c *cli.Context) error {
	if err := requireArgs(c, 3); err != nil {
		return err
	}
	args := c.Args().Slice()
	data, err := os.ReadFile(args[2])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	ctx, cancel := withTimeout(c, 0)
	defer cancel()

	body := map[string]any{
		"to":        args[1],
		"filename":  filepath.Base(args[2]),
		"mime_type": c.String("mime"),
		"caption":   c.String("caption"),
		"data":      data,
	}

	var r receipt
	if err := postJSON(ctx, c, tenantPath(args[0], "/messages/file"), body, &r); err != nil {
		return err
	}
	return renderReceipt(c, r)
}

func tenantRegistered(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, 0)
	defer cancel()

	var result struct {
		Address    string `json:"address"`
		Registered bool   `json:"registered"`
	}
	body := map[string]string{"address": c.Args().Get(1)}
	if err := postJSON(ctx, c, tenantPath(c.Args().First(), "/registered"), body, &result); err != nil {
		return err
	}
	return render(c, result, func() *output.Table {
		table := &output.Table{Headers: []string{"ADDRESS", "REGISTERED"}}
		table.AddRow(result.Address, fmt.Sprint(result.Registered))
		return table
	})
}

func tenantLogout(c *cli.Context) error {
	return tenantAction(c, "/logout")
}

func tenantClose(c *cli.Context) error {
	return tenantAction(c, "/close")
}

func tenantAction(c *cli.Context, suffix string) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	ctx, cancel := withTimeout(c, 0)
	defer cancel()

	var result struct {
		TenantID string `json:"tenant_id"`
		Status   string `json:"status"`
	}
	if err := postJSON(ctx, c, tenantPath(c.Args().First(), suffix), nil, &result); err != nil {
		return err
	}
	return render(c, result, func() *output.Table {
		table := &output.Table{Headers: []string{"TENANT", "STATUS"}}
		table.AddRow(result.TenantID, result.Status)
		return table
	})
}
