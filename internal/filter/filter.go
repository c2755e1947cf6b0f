// Package filter turns the operator's filter fields into a canonical query
// descriptor, and back.
package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Query parameter names
const (
	ParamIP        = "ip"
	ParamDomain    = "domain"
	ParamStartDate = "start_date"
	ParamEndDate   = "end_date"
	ParamStartTime = "start_time"
	ParamEndTime   = "end_time"
	ParamLines     = "lines"
)

// ValidationError reports a malformed filter field
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// RawFields holds the filter inputs exactly as typed
type RawFields struct {
	IP        string
	Domain    string
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	Lines     string
}

// Spec is the canonical description of one logs request. A zero field is
// unconstrained. Specs are values: build a new one for every submission.
type Spec struct {
	IP        string `json:"ip,omitempty"`
	Domain    string `json:"domain,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Limit     int    `json:"lines,omitempty"`
}

// Build validates raw fields and returns the descriptor. Blank fields are
// omitted, never sent as empty constraints.
func Build(raw RawFields) (Spec, error) {
	spec := Spec{
		IP:     strings.TrimSpace(raw.IP),
		Domain: strings.TrimSpace(raw.Domain),
	}

	var err error
	if spec.StartDate, err = parseDate(ParamStartDate, raw.StartDate); err != nil {
		return Spec{}, err
	}
	if spec.EndDate, err = parseDate(ParamEndDate, raw.EndDate); err != nil {
		return Spec{}, err
	}
	if spec.StartDate != "" && spec.EndDate != "" && spec.StartDate > spec.EndDate {
		return Spec{}, &ValidationError{Field: ParamEndDate, Value: spec.EndDate, Reason: "before start date"}
	}
	if spec.StartTime, err = parseClock(ParamStartTime, raw.StartTime); err != nil {
		return Spec{}, err
	}
	if spec.EndTime, err = parseClock(ParamEndTime, raw.EndTime); err != nil {
		return Spec{}, err
	}
	if spec.Limit, err = parseLines(raw.Lines); err != nil {
		return Spec{}, err
	}

	return spec, nil
}

// Parse rebuilds a Spec from its query parameter form
func Parse(values url.Values) (Spec, error) {
	return Build(RawFields{
		IP:        values.Get(ParamIP),
		Domain:    values.Get(ParamDomain),
		StartDate: values.Get(ParamStartDate),
		EndDate:   values.Get(ParamEndDate),
		StartTime: values.Get(ParamStartTime),
		EndTime:   values.Get(ParamEndTime),
		Lines:     values.Get(ParamLines),
	})
}

// Values returns the query parameter form. Omitted fields are absent.
func (s Spec) Values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set(ParamIP, s.IP)
	set(ParamDomain, s.Domain)
	set(ParamStartDate, s.StartDate)
	set(ParamEndDate, s.EndDate)
	set(ParamStartTime, s.StartTime)
	set(ParamEndTime, s.EndTime)
	if s.Limit > 0 {
		v.Set(ParamLines, strconv.Itoa(s.Limit))
	}
	return v
}

// IsZero reports whether the spec constrains nothing
func (s Spec) IsZero() bool {
	return s == Spec{}
}

// HasTimeRange reports whether a time-of-day constraint is set
func (s Spec) HasTimeRange() bool {
	return s.StartTime != "" || s.EndTime != ""
}

// WrapsMidnight reports whether the time-of-day range crosses midnight
func (s Spec) WrapsMidnight() bool {
	return s.StartTime != "" && s.EndTime != "" && s.StartTime > s.EndTime
}

// Matches evaluates the spec against a single entry, mirroring the server
// side predicate.
func (s Spec) Matches(e models.LogEntry) bool {
	if s.IP != "" && !containsFold(e.IP, s.IP) {
		return false
	}
	if s.Domain != "" && !containsFold(e.Domain, s.Domain) {
		return false
	}
	if s.StartDate == "" && s.EndDate == "" && !s.HasTimeRange() {
		return true
	}

	t, ok := e.Time()
	if !ok {
		return false
	}
	day := t.Format(dateLayout)
	if s.StartDate != "" && day < s.StartDate {
		return false
	}
	if s.EndDate != "" && day > s.EndDate {
		return false
	}
	return s.matchesClock(t.Format(timeLayout))
}

func (s Spec) matchesClock(clock string) bool {
	if !s.HasTimeRange() {
		return true
	}
	if s.WrapsMidnight() {
		return clock >= s.StartTime || clock <= s.EndTime
	}
	if s.StartTime != "" && clock < s.StartTime {
		return false
	}
	if s.EndTime != "" && clock > s.EndTime {
		return false
	}
	return true
}

// Apply returns the entries matching the spec, honouring Limit
func (s Spec) Apply(entries []models.LogEntry) []models.LogEntry {
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if !s.Matches(e) {
			continue
		}
		out = append(out, e)
		if s.Limit > 0 && len(out) == s.Limit {
			break
		}
	}
	return out
}

func parseDate(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", &ValidationError{Field: field, Value: raw, Reason: "expected YYYY-MM-DD"}
	}
	return t.Format(dateLayout), nil
}

func parseClock(field, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return "", &ValidationError{Field: field, Value: raw, Reason: "expected HH:MM"}
	}
	return t.Format(timeLayout), nil
}

func parseLines(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: ParamLines, Value: raw, Reason: "not a number"}
	}
	if n < 0 {
		return 0, &ValidationError{Field: ParamLines, Value: raw, Reason: "must not be negative"}
	}
	return n, nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
