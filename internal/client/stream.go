package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Subscribe connects to the server event stream and calls handle for every
// event until ctx is done or the connection drops. A non-zero spec limits
// streamed queries to the matching ones.
func (c *Client) Subscribe(ctx context.Context, spec filter.Spec, handle func(models.RawEvent)) error {
	target, err := c.streamURL()
	if err != nil {
		return &FetchError{Op: "subscribe", Err: err}
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		fe := &FetchError{Op: "subscribe", Err: err}
		if resp != nil {
			fe.Status = resp.StatusCode
		}
		return fe
	}
	defer conn.Close()

	// unblock ReadMessage on cancellation
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if !spec.IsZero() {
		fields := map[string]string{}
		for k := range spec.Values() {
			fields[k] = spec.Values().Get(k)
		}
		if err := conn.WriteJSON(models.Event{Type: models.CommandFilter, Filter: fields}); err != nil {
			return &FetchError{Op: "subscribe", Err: err}
		}
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &FetchError{Op: "subscribe", Err: err}
		}
		var event models.RawEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		handle(event)
	}
}

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/api/ws")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}
