package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/ingestion"
	"github.com/your-username/pihole-log-viewer/internal/monitoring"
	"github.com/your-username/pihole-log-viewer/internal/settings"
)

// BadRequestError is a request the client can fix
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

// statusFor maps an error onto the HTTP status of its response
func statusFor(err error) int {
	var (
		verr *filter.ValidationError
		serr *settings.InvalidError
		berr *BadRequestError
		terr *monitoring.TelegramError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &serr), errors.As(err, &berr),
		errors.Is(err, settings.ErrUnknownKey), errors.Is(err, monitoring.ErrTelegramDisabled):
		return http.StatusBadRequest
	case errors.Is(err, ingestion.ErrImportInProgress):
		return http.StatusConflict
	case errors.Is(err, ingestion.ErrNoSource):
		return http.StatusServiceUnavailable
	case errors.As(err, &terr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeOK writes {"success": true} merged with fields
func writeOK(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}
