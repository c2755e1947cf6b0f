package client

import (
	"context"
	"net/http"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

// LogsResponse is the wire form of /api/logs
type LogsResponse struct {
	Logs          []models.LogEntry `json:"logs"`
	TotalFound    *int              `json:"total_found"`
	TotalReturned *int              `json:"total_returned"`
	Limited       bool              `json:"limited"`
}

// ResultSet converts the response, defaulting total_found to the number of
// returned entries when the server omitted it
func (r LogsResponse) ResultSet() models.LogResultSet {
	entries := r.Logs
	if entries == nil {
		entries = []models.LogEntry{}
	}
	total := len(entries)
	if r.TotalFound != nil && *r.TotalFound > total {
		total = *r.TotalFound
	}
	return models.LogResultSet{Entries: entries, TotalFound: total}
}

// FetchLogs requests the log entries matching spec
func (c *Client) FetchLogs(ctx context.Context, spec filter.Spec) (models.LogResultSet, error) {
	var resp LogsResponse
	if err := c.call(ctx, "fetch logs", http.MethodGet, "/api/logs", spec.Values(), nil, &resp); err != nil {
		return models.LogResultSet{}, err
	}
	return resp.ResultSet(), nil
}

type domainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

type ipCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

type domainsResponse struct {
	Domains []domainCount `json:"domains"`
}

type ipsResponse struct {
	IPs []ipCount `json:"ips"`
}

func domainItems(in []domainCount) []models.AggregateItem {
	out := make([]models.AggregateItem, 0, len(in))
	for _, d := range in {
		out = append(out, models.AggregateItem{Key: d.Domain, Count: d.Count})
	}
	return out
}

// FetchTopDomains returns the most queried domains of a day. A zero date
// means today on the server.
func (c *Client) FetchTopDomains(ctx context.Context, date time.Time, limit int) ([]models.AggregateItem, error) {
	var resp domainsResponse
	if err := c.call(ctx, "fetch top domains", http.MethodGet, "/api/top-domains", dateQuery(date, limit), nil, &resp); err != nil {
		return nil, err
	}
	return domainItems(resp.Domains), nil
}

// FetchTopBlockedDomains returns the most blocked domains of a day
func (c *Client) FetchTopBlockedDomains(ctx context.Context, date time.Time, limit int) ([]models.AggregateItem, error) {
	var resp domainsResponse
	if err := c.call(ctx, "fetch top blocked domains", http.MethodGet, "/api/top-blocked-domains", dateQuery(date, limit), nil, &resp); err != nil {
		return nil, err
	}
	return domainItems(resp.Domains), nil
}

// FetchTopIPs returns the most active clients of a day
func (c *Client) FetchTopIPs(ctx context.Context, date time.Time, limit int) ([]models.AggregateItem, error) {
	var resp ipsResponse
	if err := c.call(ctx, "fetch top ips", http.MethodGet, "/api/top-ips", dateQuery(date, limit), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]models.AggregateItem, 0, len(resp.IPs))
	for _, ip := range resp.IPs {
		out = append(out, models.AggregateItem{Key: ip.IP, Count: ip.Count})
	}
	return out, nil
}

// FetchActivitySeries returns the hourly queries/blocked series of a day.
// Sequences of unequal length are cut to the shortest.
func (c *Client) FetchActivitySeries(ctx context.Context, date time.Time) (models.ChartSeries, error) {
	var resp struct {
		Data models.ChartSeries `json:"data"`
	}
	if err := c.call(ctx, "fetch activity series", http.MethodGet, "/api/activity-chart", dateQuery(date, 0), nil, &resp); err != nil {
		return models.ChartSeries{}, err
	}
	return alignSeries(resp.Data), nil
}

func alignSeries(s models.ChartSeries) models.ChartSeries {
	n := len(s.Labels)
	if len(s.Queries) < n {
		n = len(s.Queries)
	}
	if len(s.Blocked) < n {
		n = len(s.Blocked)
	}
	out := models.ChartSeries{
		Labels:  make([]string, n),
		Queries: make([]int, n),
		Blocked: make([]int, n),
	}
	copy(out.Labels, s.Labels)
	copy(out.Queries, s.Queries)
	copy(out.Blocked, s.Blocked)
	return out
}

// FetchStats returns the headline statistics of a day
func (c *Client) FetchStats(ctx context.Context, date time.Time) (models.Stats, error) {
	var resp struct {
		Stats models.Stats `json:"stats"`
	}
	if err := c.call(ctx, "fetch stats", http.MethodGet, "/api/stats", dateQuery(date, 0), nil, &resp); err != nil {
		return models.Stats{}, err
	}
	return resp.Stats, nil
}

// FetchRecentActivity returns the latest queries seen by the server
func (c *Client) FetchRecentActivity(ctx context.Context) ([]models.Activity, error) {
	var resp struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := c.call(ctx, "fetch recent activity", http.MethodGet, "/api/recent-activity", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Activities == nil {
		resp.Activities = []models.Activity{}
	}
	return resp.Activities, nil
}
