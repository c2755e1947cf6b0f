// Package aggregate derives ranked top lists, time series and summary
// statistics from log entries. The database package computes the same
// results in SQL; both sides must agree for identical input.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/miekg/dns"

	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/status"
)

// KeyField selects the grouping key of a top list
type KeyField int

const (
	KeyDomain KeyField = iota
	KeyClient
	KeyBaseDomain
	KeyStatus
)

func (k KeyField) String() string {
	switch k {
	case KeyDomain:
		return "domain"
	case KeyClient:
		return "client"
	case KeyBaseDomain:
		return "base_domain"
	case KeyStatus:
		return "status"
	default:
		return fmt.Sprintf("KeyField(%d)", int(k))
	}
}

// ParseKeyField accepts the names produced by String, plus "ip" for clients
func ParseKeyField(s string) (KeyField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "domain", "domains":
		return KeyDomain, nil
	case "client", "clients", "ip", "ips":
		return KeyClient, nil
	case "base_domain", "base":
		return KeyBaseDomain, nil
	case "status":
		return KeyStatus, nil
	}
	return 0, fmt.Errorf("unknown key field %q", s)
}

func keyOf(e models.LogEntry, key KeyField) string {
	switch key {
	case KeyDomain:
		return strings.TrimSpace(e.Domain)
	case KeyClient:
		return strings.TrimSpace(e.IP)
	case KeyBaseDomain:
		return BaseDomain(e.Domain)
	case KeyStatus:
		return status.Label(e.Status)
	}
	return ""
}

// BaseDomain reduces a host name to its last two labels. Names that are not
// valid domain names are returned trimmed and lower-cased.
func BaseDomain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if _, ok := dns.IsDomainName(name); !ok {
		return name
	}
	labels := dns.SplitDomainName(name)
	if len(labels) <= 2 {
		return strings.Join(labels, ".")
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// TopN groups entries by key and sums their occurrences. Items are sorted by
// count descending; ties keep the order in which keys were first seen.
// Entries with an empty key are skipped, as are loopback clients when
// ranking by client. A limit <= 0 returns every group.
func TopN(entries []models.LogEntry, key KeyField, limit int) []models.AggregateItem {
	index := make(map[string]int)
	items := make([]models.AggregateItem, 0)

	for _, e := range entries {
		k := keyOf(e, key)
		if k == "" || (key == KeyClient && IsLoopback(k)) {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(items)
			index[k] = i
			items = append(items, models.AggregateItem{Key: k})
		}
		items[i].Count += e.Occurrences()
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Count > items[j].Count
	})

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// TopBlocked ranks domains among blocked entries only
func TopBlocked(entries []models.LogEntry, limit int) []models.AggregateItem {
	blocked := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		if status.IsBlocked(e.Status) {
			blocked = append(blocked, e)
		}
	}
	return TopN(blocked, KeyDomain, limit)
}

// Summarize computes headline statistics over entries
func Summarize(entries []models.LogEntry) models.Stats {
	var st models.Stats
	clients := make(map[string]struct{})
	domains := make(map[string]struct{})

	for _, e := range entries {
		n := e.Occurrences()
		st.TotalQueries += n
		if status.IsBlocked(e.Status) {
			st.BlockedQueries += n
		}
		if ip := strings.TrimSpace(e.IP); ip != "" {
			clients[ip] = struct{}{}
		}
		if d := strings.TrimSpace(e.Domain); d != "" {
			domains[d] = struct{}{}
		}
	}

	st.UniqueClients = len(clients)
	st.UniqueDomains = len(domains)
	st.BlockRate = BlockRate(st.BlockedQueries, st.TotalQueries)
	return st
}

// BlockRate returns blocked/total as a percentage rounded to one decimal
func BlockRate(blocked, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(blocked)/float64(total)*1000) / 10
}
