package connection

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Event is one Server-Sent Events message.
type Event struct {
	ID   string
	Type string
	Data string
}

// Stream opens an event stream at path and calls fn for every event until
// ctx is done, the server ends the stream or fn returns an error.
func (c *HTTPClient) Stream(ctx context.Context, path string, fn func(Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 400 {
		return ParseResponse(resp, nil)
	}
	defer resp.Body.Close()

	err = readEvents(bufio.NewScanner(resp.Body), fn)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func readEvents(scanner *bufio.Scanner, fn func(Event) error) error {
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var ev Event
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if len(data) > 0 {
				ev.Data = strings.Join(data, "\n")
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, data = Event{}, nil
		case strings.HasPrefix(line, ":"):
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "id":
				ev.ID = value
			case "event":
				ev.Type = value
			case "data":
				data = append(data, value)
			}
		}
	}
	return scanner.Err()
}
