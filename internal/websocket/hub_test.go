package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(HandleWebSocket(hub, nil))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ev := readEvent(t, conn)
	require.Equal(t, models.EventConnection, ev.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.RawEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev models.RawEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func readStatus(t *testing.T, conn *websocket.Conn) models.EventStatusData {
	t.Helper()
	ev := readEvent(t, conn)
	require.Equal(t, models.EventStatus, ev.Type)
	var st models.EventStatusData
	require.NoError(t, json.Unmarshal(ev.Data, &st))
	return st
}

func TestHub_BroadcastDataUpdated(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	assert.Equal(t, 1, hub.GetConnectedClients())

	hub.BroadcastDataUpdated(models.ImportResult{Message: "imported", InsertedCount: 7})

	ev := readEvent(t, conn)
	assert.Equal(t, models.EventDataUpdated, ev.Type)
	var res models.ImportResult
	require.NoError(t, json.Unmarshal(ev.Data, &res))
	assert.Equal(t, 7, res.InsertedCount)
}

func TestHub_QueriesFollowClientFilter(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(models.Event{Type: models.CommandFilter, Filter: map[string]string{"domain": "ads"}}))
	assert.Equal(t, "filters_updated", readStatus(t, conn).Status)

	hub.BroadcastQueries([]models.LogEntry{
		{Timestamp: "2024-03-01 08:00:00", Domain: "example.com", IP: "10.0.0.1", Status: "forwarded"},
		{Timestamp: "2024-03-01 08:00:01", Domain: "ads.tracker.net", IP: "10.0.0.1", Status: "blocked"},
	})

	ev := readEvent(t, conn)
	require.Equal(t, models.EventQueries, ev.Type)
	var got []models.LogEntry
	require.NoError(t, json.Unmarshal(ev.Data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "ads.tracker.net", got[0].Domain)
}

func TestHub_PausedClientsSkipQueries(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(models.Event{Type: models.CommandPause}))
	assert.Equal(t, "paused", readStatus(t, conn).Status)

	hub.BroadcastQueries([]models.LogEntry{{Domain: "a.com", IP: "10.0.0.1", Status: "cached"}})
	hub.BroadcastAlerts([]models.AlertItem{{ID: "1", Title: "IP spike", Severity: models.AlertWarning}})

	ev := readEvent(t, conn)
	assert.Equal(t, models.EventAlerts, ev.Type)
}

func TestHub_InvalidFilterIsReported(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(models.Event{Type: models.CommandFilter, Filter: map[string]string{"start_date": "yesterday"}}))
	st := readStatus(t, conn)
	assert.Equal(t, "invalid_filter", st.Status)
	assert.Contains(t, st.Message, "start_date")

	require.NoError(t, conn.WriteJSON(models.Event{Type: models.CommandPing}))
	assert.Equal(t, "pong", readStatus(t, conn).Status)
}
