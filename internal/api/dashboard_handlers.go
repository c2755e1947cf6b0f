package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/cache"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100
	recentLimit     = 20
)

// dayParams reads the date and limit query parameters. The date defaults to
// today in the server zone.
func (s *Server) dayParams(r *http.Request) (string, int, error) {
	q := r.URL.Query()

	date := q.Get("date")
	if date == "" {
		date = s.now().In(s.loc).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", 0, &BadRequestError{Message: "date must be YYYY-MM-DD"}
	}

	limit := defaultTopLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return "", 0, &BadRequestError{Message: "limit must be a positive integer"}
		}
		limit = n
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	return date, limit, nil
}

func cacheParams(date string, limit int) url.Values {
	return url.Values{"date": {date}, "limit": {strconv.Itoa(limit)}}
}

func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	date, _, err := s.dayParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := cache.Remember(r.Context(), s.deps.Cache, "stats", url.Values{"date": {date}}, func(ctx context.Context) (models.Stats, error) {
		return s.deps.Store.Stats(ctx, date)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"stats": stats})
}

// ActivityChart returns the 24 hourly buckets of a day
func (s *Server) ActivityChart(w http.ResponseWriter, r *http.Request) {
	date, _, err := s.dayParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	series, err := cache.Remember(r.Context(), s.deps.Cache, "activity-chart", url.Values{"date": {date}}, func(ctx context.Context) (models.ChartSeries, error) {
		return s.deps.Store.ActivitySeries(ctx, date)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"data": series})
}

type domainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

type ipCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

func domainCounts(items []models.AggregateItem) []domainCount {
	out := make([]domainCount, 0, len(items))
	for _, it := range items {
		out = append(out, domainCount{Domain: it.Key, Count: it.Count})
	}
	return out
}

type topLoader func(ctx context.Context, date string, limit int) ([]models.AggregateItem, error)

func (s *Server) top(r *http.Request, endpoint string, load topLoader) ([]models.AggregateItem, error) {
	date, limit, err := s.dayParams(r)
	if err != nil {
		return nil, err
	}
	return cache.Remember(r.Context(), s.deps.Cache, endpoint, cacheParams(date, limit), func(ctx context.Context) ([]models.AggregateItem, error) {
		return load(ctx, date, limit)
	})
}

func (s *Server) TopDomains(w http.ResponseWriter, r *http.Request) {
	items, err := s.top(r, "top-domains", s.deps.Store.TopDomains)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"domains": domainCounts(items)})
}

func (s *Server) TopBlockedDomains(w http.ResponseWriter, r *http.Request) {
	items, err := s.top(r, "top-blocked-domains", s.deps.Store.TopBlockedDomains)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, map[string]interface{}{"domains": domainCounts(items)})
}

// TopIPs lists the most active clients, loopback excluded
func (s *Server) TopIPs(w http.ResponseWriter, r *http.Request) {
	items, err := s.top(r, "top-ips", s.deps.Store.TopClients)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ips := make([]ipCount, 0, len(items))
	for _, it := range items {
		ips = append(ips, ipCount{IP: it.Key, Count: it.Count})
	}
	writeOK(w, map[string]interface{}{"ips": ips})
}

// RecentActivity is never cached; it is the live feed
func (s *Server) RecentActivity(w http.ResponseWriter, r *http.Request) {
	activities, err := s.deps.Store.RecentActivity(r.Context(), recentLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	writeOK(w, map[string]interface{}{"activities": activities})
}
