package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/export"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/settings"
)

// Export renders the logs matching the filter parameters as a download.
// The format parameter defaults to csv.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := q.Get("format")
	if name == "" {
		name = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, r, &BadRequestError{Message: err.Error()})
		return
	}
	q.Del("format")

	spec, err := filter.Parse(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, _, err := s.deps.Store.QueryLogs(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cfg, err := s.deps.Settings.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load settings, using default report header")
		cfg = settings.Defaults()
	}

	// rendered in memory so a failure can still become a JSON error
	var buf bytes.Buffer
	if err := s.deps.Exporter.Export(&buf, format, entries, cfg.ReportMeta()); err != nil {
		writeError(w, r, fmt.Errorf("failed to export logs: %w", err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", format.Filename(s.now().In(s.loc))))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("Failed to write export")
	}
}
