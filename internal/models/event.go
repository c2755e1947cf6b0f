package models

import "encoding/json"

// Event types pushed over the websocket
const (
	EventConnection  = "connection"
	EventStatus      = "status"
	EventDataUpdated = "data_updated"
	EventAlerts      = "alerts"
	EventQueries     = "queries"
)

// Commands a websocket client may send
const (
	CommandFilter = "filter"
	CommandPause  = "pause"
	CommandResume = "resume"
	CommandPing   = "ping"
)

// Event is a websocket message in either direction. Filter carries the
// filter parameters (ip, domain, start_date, ...) of a filter command.
type Event struct {
	Type   string            `json:"type"`
	Data   interface{}       `json:"data,omitempty"`
	Filter map[string]string `json:"filter,omitempty"`
}

// RawEvent is an event whose payload is decoded later by type
type RawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EventStatusData is the payload of connection and status events
type EventStatusData struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
