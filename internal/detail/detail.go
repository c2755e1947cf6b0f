// Package detail selects the entries behind one domain of the current view
package detail

import (
	"strings"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Details is the drill-down for a domain token
type Details struct {
	Domain  string            `json:"domain"`
	Entries []models.LogEntry `json:"entries"`
}

// Empty reports whether no entry matched
func (d Details) Empty() bool {
	return len(d.Entries) == 0
}

// Occurrences sums the occurrences of the matched entries
func (d Details) Occurrences() int {
	total := 0
	for _, e := range d.Entries {
		total += e.Occurrences()
	}
	return total
}

// For returns the snapshot entries whose domain contains the token,
// case-insensitively and in snapshot order. Subdomains and related hosts
// match as well. A blank token matches nothing.
func For(domain string, snapshot models.LogResultSet) Details {
	token := strings.ToLower(strings.TrimSpace(domain))
	d := Details{Domain: strings.TrimSpace(domain), Entries: []models.LogEntry{}}
	if token == "" {
		return d
	}

	for _, e := range snapshot.Entries {
		if strings.Contains(strings.ToLower(e.Domain), token) {
			d.Entries = append(d.Entries, e)
		}
	}
	return d
}
