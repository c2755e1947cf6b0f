package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/filter"
	"github.com/your-username/pihole-log-viewer/internal/models"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)
	return New(server.URL, WithToken("secret")), server.Close
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNew(t *testing.T) {
	c := New("http://localhost:8082/")
	assert.Equal(t, "http://localhost:8082", c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.client.Timeout)

	c = New("http://x", WithTimeout(time.Second))
	assert.Equal(t, time.Second, c.client.Timeout)
}

func TestFetchLogs_SendsOnlyPresentFields(t *testing.T) {
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/logs", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		q := r.URL.Query()
		assert.Equal(t, "ads", q.Get("domain"))
		assert.Equal(t, "100", q.Get("lines"))
		_, hasIP := q["ip"]
		assert.False(t, hasIP)
		_, hasStart := q["start_date"]
		assert.False(t, hasStart)

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":        true,
			"total_found":    250,
			"total_returned": 1,
			"limited":        true,
			"logs": []map[string]interface{}{
				{"timestamp": "2024-03-01 10:00:00", "domain": "ads.com", "client": "10.0.0.9", "status": "blocked", "count": 3},
			},
		})
	})
	defer done()

	rs, err := c.FetchLogs(context.Background(), filter.Spec{Domain: "ads", Limit: 100})
	require.NoError(t, err)
	require.Len(t, rs.Entries, 1)
	assert.Equal(t, "10.0.0.9", rs.Entries[0].IP)
	assert.Equal(t, 3, rs.Entries[0].Occurrences())
	assert.Equal(t, 250, rs.TotalFound)
	assert.True(t, rs.Truncated())
}

func TestFetchLogs_MissingTotalDefaultsToLen(t *testing.T) {
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"logs":    []map[string]interface{}{{"domain": "a.com"}, {"domain": "b.com"}},
		})
	})
	defer done()

	rs, err := c.FetchLogs(context.Background(), filter.Spec{})
	require.NoError(t, err)
	assert.Equal(t, 2, rs.TotalFound)
	assert.Nil(t, rs.Entries[0].Count)
}

func TestFetchLogs_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		message string
	}{
		{
			name: "success false",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": "database locked"})
			},
			status:  http.StatusOK,
			message: "database locked",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "boom"})
			},
			status:  http.StatusInternalServerError,
			message: "boom",
		},
		{
			name: "plain text error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "bad gateway", http.StatusBadGateway)
			},
			status:  http.StatusBadGateway,
			message: "bad gateway",
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>"))
			},
			status:  http.StatusOK,
			message: "undecodable response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, done := newServer(t, tt.handler)
			defer done()

			_, err := c.FetchLogs(context.Background(), filter.Spec{})
			var ferr *FetchError
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, tt.status, ferr.Status)
			assert.Equal(t, tt.message, ferr.Message)
			assert.Equal(t, "fetch logs", ferr.Op)
			assert.True(t, ferr.Retryable())
		})
	}
}

func TestFetchLogs_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	c := New(server.URL)
	server.Close()

	_, err := c.FetchLogs(context.Background(), filter.Spec{})
	var ferr *FetchError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 0, ferr.Status)
	assert.Error(t, ferr.Unwrap())
}

func TestFetchTopLists(t *testing.T) {
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("date"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		switch r.URL.Path {
		case "/api/top-domains", "/api/top-blocked-domains":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"domains": []map[string]interface{}{{"domain": "a.com", "count": 9}, {"domain": "b.com", "count": 4}},
			})
		case "/api/top-ips":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"ips":     []map[string]interface{}{{"ip": "10.0.0.5", "count": 12}},
			})
		default:
			http.NotFound(w, r)
		}
	})
	defer done()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	domains, err := c.FetchTopDomains(ctx, day, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.AggregateItem{{Key: "a.com", Count: 9}, {Key: "b.com", Count: 4}}, domains)

	blocked, err := c.FetchTopBlockedDomains(ctx, day, 10)
	require.NoError(t, err)
	assert.Len(t, blocked, 2)

	ips, err := c.FetchTopIPs(ctx, day, 10)
	require.NoError(t, err)
	assert.Equal(t, []models.AggregateItem{{Key: "10.0.0.5", Count: 12}}, ips)
}

func TestFetchActivitySeries_AlignsSequences(t *testing.T) {
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"labels":  []string{"00:00", "01:00", "02:00"},
				"queries": []int{5, 6, 7},
				"blocked": []int{1, 2},
			},
		})
	})
	defer done()

	series, err := c.FetchActivitySeries(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
	assert.Equal(t, []int{5, 6}, series.Queries)
}

func TestFetchStatsAndAlerts(t *testing.T) {
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/stats":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"stats":   models.Stats{TotalQueries: 10, BlockedQueries: 3, BlockRate: 30},
			})
		case "/api/alerts", "/api/check-alerts":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"alerts":  []models.AlertItem{{Title: "Spike", Type: models.AlertCritical}},
			})
		case "/api/recent-activity":
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
		}
	})
	defer done()

	ctx := context.Background()
	st, err := c.FetchStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 30.0, st.BlockRate)

	alerts, err := c.FetchAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertCritical, alerts[0].Type)

	checked, err := c.CheckAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, checked, 1)

	activity, err := c.FetchRecentActivity(ctx)
	require.NoError(t, err)
	assert.NotNil(t, activity)
	assert.Empty(t, activity)
}

func TestConfigRoundTrip(t *testing.T) {
	stored := map[string]interface{}{"pdf_title": "Home"}
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var in map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			for k, v := range in {
				stored[k] = v
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "settings": stored})
	})
	defer done()

	ctx := context.Background()
	saved, err := c.SaveConfig(ctx, map[string]interface{}{"pdf_author": "Ops"})
	require.NoError(t, err)
	assert.Equal(t, "Ops", saved["pdf_author"])

	got, err := c.FetchConfig(ctx)
	require.NoError(t, err)
	meta := PDFMetadata(got)
	assert.Equal(t, "Home", meta.Title)
	assert.Equal(t, "Ops", meta.Author)
	assert.Equal(t, DefaultPDFSubject, meta.Subject)
}

func TestPDFMetadata_Defaults(t *testing.T) {
	meta := PDFMetadata(map[string]interface{}{"pdf_title": "  ", "pdf_author": 42})
	assert.Equal(t, models.ReportMeta{
		Title:   DefaultPDFTitle,
		Author:  DefaultPDFAuthor,
		Subject: DefaultPDFSubject,
	}, meta)
	assert.Equal(t, DefaultPDFTitle, PDFMetadata(nil).Title)
}

func TestUpdateDataAndLastUpdate(t *testing.T) {
	c, done := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/update-data":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success": true, "message": "imported", "inserted_count": 42,
			})
		case "/api/last-update":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"success":     true,
				"last_update": map[string]interface{}{"time": "2024-03-01T10:00:00Z"},
			})
		}
	})
	defer done()

	res, err := c.UpdateData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, res.InsertedCount)

	lu, err := c.LastUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "01/03/2024, 10:00:00", lu.String())
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Op: "fetch logs", Status: 503, Message: "unavailable"}
	assert.Equal(t, "fetch logs: status 503: unavailable", err.Error())
}
