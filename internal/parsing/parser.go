// Package parsing turns raw Pi-hole output (FTL database rows and dnsmasq
// log lines) into query rows.
package parsing

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// Kind tells how a parsed line contributes to a query row
type Kind int

const (
	// KindRow is a complete row
	KindRow Kind = iota + 1
	// KindQuery opens a row whose status arrives on a later line
	KindQuery
	// KindResult carries the status for the oldest open query of a domain
	KindResult
	// KindIgnored lines are understood but carry nothing to store
	KindIgnored
)

// StatusUnknown is stored for queries whose outcome never appeared
const StatusUnknown = "unknown"

// ErrNoMatch is returned by parsers for lines they do not recognise
var ErrNoMatch = errors.New("no pattern matched the line")

// Entry is one parsed line
type Entry struct {
	Kind  Kind
	Query models.Query
}

// Parser handles one input format
type Parser interface {
	Name() string
	CanParse(line string) bool
	Parse(line string) (Entry, error)
}

// ParseStats tracks parsing statistics
type ParseStats struct {
	TotalParsed   int64            `json:"total_parsed"`
	SuccessCount  int64            `json:"success_count"`
	FailureCount  int64            `json:"failure_count"`
	ParserUsage   map[string]int64 `json:"parser_usage"`
	LastParseTime time.Time        `json:"last_parse_time"`
}

// Manager routes lines to the first parser that accepts them
type Manager struct {
	parsers []Parser

	mu    sync.Mutex
	stats ParseStats
}

func NewManager(parsers ...Parser) *Manager {
	m := &Manager{stats: ParseStats{ParserUsage: make(map[string]int64)}}
	for _, p := range parsers {
		m.RegisterParser(p)
	}
	return m
}

// RegisterParser adds a parser after the existing ones
func (m *Manager) RegisterParser(p Parser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parsers = append(m.parsers, p)
	m.stats.ParserUsage[p.Name()] = 0
	log.Debug().Str("parser", p.Name()).Msg("Parser registered")
}

// Parse parses one line
func (m *Manager) Parse(line string) (Entry, error) {
	m.mu.Lock()
	parsers := m.parsers
	m.stats.TotalParsed++
	m.stats.LastParseTime = time.Now()
	m.mu.Unlock()

	for _, p := range parsers {
		if !p.CanParse(line) {
			continue
		}
		entry, err := p.Parse(line)
		if err != nil {
			continue
		}
		m.mu.Lock()
		m.stats.SuccessCount++
		m.stats.ParserUsage[p.Name()]++
		m.mu.Unlock()
		return entry, nil
	}

	m.mu.Lock()
	m.stats.FailureCount++
	m.mu.Unlock()
	return Entry{}, ErrNoMatch
}

// ParseAll parses lines in order and pairs every query line with the next
// result line for the same domain. Queries never answered keep
// StatusUnknown. Unparsable lines are skipped.
func (m *Manager) ParseAll(lines []string) []models.Query {
	out := make([]models.Query, 0, len(lines))
	pending := make(map[string][]int)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := m.Parse(line)
		if err != nil {
			log.Debug().Str("line", line).Msg("Skipping unparsable line")
			continue
		}

		switch entry.Kind {
		case KindRow:
			out = append(out, entry.Query)
		case KindQuery:
			q := entry.Query
			q.Status = StatusUnknown
			key := strings.ToLower(q.Domain)
			pending[key] = append(pending[key], len(out))
			out = append(out, q)
		case KindResult:
			key := strings.ToLower(entry.Query.Domain)
			open := pending[key]
			if len(open) == 0 {
				continue
			}
			out[open[0]].Status = entry.Query.Status
			if len(open) == 1 {
				delete(pending, key)
			} else {
				pending[key] = open[1:]
			}
		}
	}
	return out
}

// Stats returns a copy of the counters
func (m *Manager) Stats() ParseStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.ParserUsage = make(map[string]int64, len(m.stats.ParserUsage))
	for k, v := range m.stats.ParserUsage {
		s.ParserUsage[k] = v
	}
	return s
}
