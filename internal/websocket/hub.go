package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

type outbound struct {
	message []byte
	// per client payload; nil sends message to everyone
	build func(*Client) ([]byte, bool)
}

// Hub fans server events out to connected websocket clients
type Hub struct {
	clients map[*Client]bool

	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Run serves register, unregister and broadcast requests until ctx ends.
// Remaining clients are disconnected on return.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Info().Str("client_id", client.id).Msg("Client connected")

			client.sendEvent(models.Event{
				Type: models.EventConnection,
				Data: models.EventStatusData{Status: "connected", Message: "Connected to DNS query stream"},
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Info().Str("client_id", client.id).Msg("Client disconnected")
			}
			h.mu.Unlock()

		case out := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				msg := out.message
				if out.build != nil {
					var ok bool
					if msg, ok = out.build(client); !ok {
						continue
					}
				}
				select {
				case client.send <- msg:
				default:
					log.Warn().Str("client_id", client.id).Msg("Client send buffer full, dropping client")
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every client
func (h *Hub) Broadcast(event models.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", event.Type).Msg("Failed to encode event")
		return
	}
	h.enqueue(outbound{message: msg})
}

// BroadcastDataUpdated tells clients that an import stored new rows
func (h *Hub) BroadcastDataUpdated(result models.ImportResult) {
	h.Broadcast(models.Event{Type: models.EventDataUpdated, Data: result})
}

// BroadcastAlerts pushes newly raised alerts
func (h *Hub) BroadcastAlerts(alerts []models.AlertItem) {
	if len(alerts) == 0 {
		return
	}
	h.Broadcast(models.Event{Type: models.EventAlerts, Data: alerts})
}

// BroadcastQueries streams newly imported rows. Each client receives only
// the rows matching its filter, and nothing while paused.
func (h *Hub) BroadcastQueries(entries []models.LogEntry) {
	if len(entries) == 0 {
		return
	}
	h.enqueue(outbound{build: func(c *Client) ([]byte, bool) {
		spec, paused := c.state()
		if paused {
			return nil, false
		}
		matched := spec.Apply(entries)
		if len(matched) == 0 {
			return nil, false
		}
		msg, err := json.Marshal(models.Event{Type: models.EventQueries, Data: matched})
		return msg, err == nil
	}})
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.broadcast <- out:
	default:
		log.Warn().Msg("Broadcast queue full, dropping event")
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// filterFor converts the filter command payload into a spec
func filterFor(fields map[string]string) (filter.Spec, error) {
	return filter.Build(filter.RawFields{
		IP:        fields[filter.ParamIP],
		Domain:    fields[filter.ParamDomain],
		StartDate: fields[filter.ParamStartDate],
		EndDate:   fields[filter.ParamEndDate],
		StartTime: fields[filter.ParamStartTime],
		EndTime:   fields[filter.ParamEndTime],
	})
}
