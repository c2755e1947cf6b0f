package api

import (
	"context"
	"net/http"

	"github.com/your-username/pihole-log-viewer/internal/cache"
	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

type logsResult struct {
	Logs  []models.LogEntry `json:"logs"`
	Total int               `json:"total"`
}

// Logs returns the grouped log entries matching the filter parameters
func (s *Server) Logs(w http.ResponseWriter, r *http.Request) {
	spec, err := filter.Parse(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := cache.Remember(r.Context(), s.deps.Cache, "logs", spec.Values(), func(ctx context.Context) (logsResult, error) {
		logs, total, err := s.deps.Store.QueryLogs(ctx, spec)
		return logsResult{Logs: logs, Total: total}, err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.Logs == nil {
		res.Logs = []models.LogEntry{}
	}

	writeOK(w, map[string]interface{}{
		"logs":           res.Logs,
		"total_found":    res.Total,
		"total_returned": len(res.Logs),
		"limited":        res.Total > len(res.Logs),
	})
}
