package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// GetConfig returns the stored settings
func (s *Server) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.deps.Settings.Load()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"settings": cfg})
}

// SaveConfig merges the posted keys into the settings
func (s *Server) SaveConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, r, &BadRequestError{Message: "invalid request body"})
		return
	}

	cfg, err := s.deps.Settings.Merge(patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	event := log.Info().Int("keys", len(patch))
	if claims, ok := claimsFrom(r.Context()); ok {
		event = event.Str("subject", claims.Subject)
	}
	event.Msg("Settings updated")

	writeOK(w, map[string]interface{}{"settings": cfg})
}

// Alerts returns the alerts of the latest check
func (s *Server) Alerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.deps.Alerts.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"alerts": nonNilAlerts(alerts)})
}

// CheckAlerts evaluates the alert rules now
func (s *Server) CheckAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.deps.Alerts.Check(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"alerts": nonNilAlerts(alerts)})
}

func nonNilAlerts(a []models.AlertItem) []models.AlertItem {
	if a == nil {
		return []models.AlertItem{}
	}
	return a
}

func (s *Server) TestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Alerts.TestNotification(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"message": "Test notification sent"})
}

func (s *Server) LastUpdate(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]interface{}{"last_update": s.deps.Updater.LastUpdate()})
}

type updateResponse struct {
	Success bool `json:"success"`
	models.ImportResult
}

// UpdateData runs an import and reports its counters
func (s *Server) UpdateData(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Updater.RunNow(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Success: true, ImportResult: result})
}
