package models

import (
	"encoding/json"
	"strings"
	"time"
)

// NotAvailable is displayed in place of blank fields
const NotAvailable = "N/A"

// timestampLayouts are tried in order when parsing a log timestamp
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// LogEntry represents one observed DNS query event. Entries returned by the
// logs endpoint are pre-aggregated per domain, client and status, so Count
// may be greater than one.
type LogEntry struct {
	Timestamp       string `json:"timestamp"`
	Domain          string `json:"domain"`
	IP              string `json:"ip"`
	Status          string `json:"status"`
	Count           *int   `json:"count,omitempty"`
	ActivityTime    string `json:"activity_time,omitempty"`
	DurationMinutes *int   `json:"duration_minutes,omitempty"`
}

// UnmarshalJSON accepts "client" as an alias for "ip"
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	type plain LogEntry
	var aux struct {
		plain
		Client string `json:"client"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*e = LogEntry(aux.plain)
	if e.IP == "" {
		e.IP = aux.Client
	}
	return nil
}

// Occurrences returns the number of queries this entry stands for. A missing
// count means a single query; negative counts are treated as zero.
func (e LogEntry) Occurrences() int {
	if e.Count == nil {
		return 1
	}
	if *e.Count < 0 {
		return 0
	}
	return *e.Count
}

// Time parses the entry timestamp. The second result is false when the
// timestamp is blank or in an unknown format.
func (e LogEntry) Time() (time.Time, bool) {
	return ParseTimestamp(e.Timestamp)
}

// DisplayDomain returns the domain or N/A
func (e LogEntry) DisplayDomain() string {
	return orNA(e.Domain)
}

// DisplayIP returns the client address or N/A
func (e LogEntry) DisplayIP() string {
	return orNA(e.IP)
}

// DisplayActivity returns the activity label or N/A
func (e LogEntry) DisplayActivity() string {
	return orNA(e.ActivityTime)
}

// IntPtr is a helper for building entries with an explicit count
func IntPtr(v int) *int {
	return &v
}

// ParseTimestamp parses a timestamp in any of the supported layouts
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders a timestamp as dd/mm/yyyy hh:mm:ss. Unparsable
// input is returned unchanged.
func FormatTimestamp(s string) string {
	t, ok := ParseTimestamp(s)
	if !ok {
		return s
	}
	return t.Format("02/01/2006 15:04:05")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

// LogResultSet is the ordered result of one logs fetch. TotalFound may exceed
// len(Entries) when the server truncated the result.
type LogResultSet struct {
	Entries    []LogEntry `json:"logs"`
	TotalFound int        `json:"total_found"`
}

// Truncated reports whether more matches exist than were returned
func (rs LogResultSet) Truncated() bool {
	return rs.TotalFound > len(rs.Entries)
}

// Len returns the number of entries held
func (rs LogResultSet) Len() int {
	return len(rs.Entries)
}

// AggregateItem is one row of a ranked top list
type AggregateItem struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ChartSeries holds three parallel sequences; Labels[i] describes Queries[i]
// and Blocked[i].
type ChartSeries struct {
	Labels  []string `json:"labels"`
	Queries []int    `json:"queries"`
	Blocked []int    `json:"blocked"`
}

// Len returns the number of buckets
func (s ChartSeries) Len() int {
	return len(s.Labels)
}

// TotalQueries sums the queries sequence
func (s ChartSeries) TotalQueries() int {
	total := 0
	for _, q := range s.Queries {
		total += q
	}
	return total
}

// Alert types
const (
	AlertWarning  = "warning"
	AlertCritical = "critical"
)

// AlertItem is a traffic alert produced by the server
type AlertItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Stats summarises a day of queries
type Stats struct {
	TotalQueries   int     `json:"total_queries"`
	BlockedQueries int     `json:"blocked_queries"`
	UniqueClients  int     `json:"unique_clients"`
	UniqueDomains  int     `json:"unique_domains"`
	BlockRate      float64 `json:"block_rate"`
}

// Activity is one row of the recent activity feed
type Activity struct {
	Timestamp string `json:"timestamp"`
	Domain    string `json:"domain"`
	IP        string `json:"ip"`
	Status    string `json:"status"`
}

// Query is a single raw row of the local queries table
type Query struct {
	FTLID     *int64    `json:"ftl_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Domain    string    `json:"domain"`
	Client    string    `json:"client"`
	Status    string    `json:"status"`
}

// ImportResult reports the outcome of one import run
type ImportResult struct {
	Message       string    `json:"message"`
	InsertedCount int       `json:"inserted_count"`
	SkippedFuture int       `json:"skipped_future"`
	SkippedLocal  int       `json:"skipped_local"`
	SkippedBad    int       `json:"skipped_invalid"`
	Removed       int64     `json:"removed"`
	TotalRecords  int       `json:"total_records"`
	RetentionDays int       `json:"retention_days"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// LastUpdate describes the most recent import attempt
type LastUpdate struct {
	Time       time.Time `json:"time"`
	InProgress bool      `json:"in_progress"`
	Err        string    `json:"error,omitempty"`
}

// String renders the update time the way the dashboard shows it
func (u LastUpdate) String() string {
	if u.Time.IsZero() {
		return "Never"
	}
	s := u.Time.Format("02/01/2006, 15:04:05")
	if u.InProgress {
		s += " (in progress)"
	}
	return s
}

// Report header defaults used when the settings leave a field blank
const (
	DefaultReportTitle   = "DNS Query Log Report"
	DefaultReportAuthor  = "DNS Log Viewer"
	DefaultReportSubject = "DNS Query Logs"
)

// ReportMeta is the document header written into exports
type ReportMeta struct {
	Title   string `json:"title"`
	Author  string `json:"author"`
	Subject string `json:"subject"`
}
