package parsing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// RegexPattern maps a line format onto an entry kind
type RegexPattern struct {
	Name        string
	Pattern     *regexp.Regexp
	PatternStr  string
	Kind        Kind
	Priority    int
	Description string
}

// the syslog or ISO stamp and the dnsmasq tag, optionally followed by the
// "<id> <client>/<port>" prefix log-queries=extra adds
const dnsmasqPrefix = `^(?P<time>\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2}|\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}(?:\.\d+)?)\s+(?:\S+\s+)?(?:dnsmasq|pihole-FTL)\[\d+\]:\s+(?:\d+\s+\S+/\d+\s+)?`

// result actions and the status token each one stores
var actionStatus = map[string]string{
	"forwarded":           "forwarded",
	"cached":              "cached",
	"cached-stale":        "cached-stale",
	"gravity blocked":     "blocked",
	"regex blocked":       "blocked",
	"exactly blocked":     "blocked",
	"special domain":      "blocked",
	"regex blacklisted":   "blacklisted",
	"exactly blacklisted": "blacklisted",
	"blacklisted":         "blacklisted",
}

// DnsmasqParser reads the query and result lines of pihole.log. Syslog
// stamps carry no year; the most recent year that does not put the line more
// than a day in the future is assumed.
type DnsmasqParser struct {
	loc      *time.Location
	now      func() time.Time
	patterns []*RegexPattern
}

func NewDnsmasqParser(loc *time.Location) *DnsmasqParser {
	if loc == nil {
		loc = time.Local
	}
	p := &DnsmasqParser{loc: loc, now: time.Now}
	p.AddDefaultPatterns()
	return p
}

func (p *DnsmasqParser) Name() string { return "dnsmasq" }

func (p *DnsmasqParser) CanParse(line string) bool {
	return strings.Contains(line, "dnsmasq[") || strings.Contains(line, "pihole-FTL[")
}

func (p *DnsmasqParser) Parse(line string) (Entry, error) {
	line = strings.TrimSpace(line)
	for _, pattern := range p.patterns {
		if matches := pattern.Pattern.FindStringSubmatch(line); matches != nil {
			return p.parseWithPattern(pattern, matches)
		}
	}
	return Entry{}, ErrNoMatch
}

func (p *DnsmasqParser) parseWithPattern(pattern *RegexPattern, matches []string) (Entry, error) {
	fields := make(map[string]string)
	for i, name := range pattern.Pattern.SubexpNames() {
		if i > 0 && name != "" {
			fields[name] = matches[i]
		}
	}

	ts, err := p.parseTimestamp(fields["time"])
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		Kind: pattern.Kind,
		Query: models.Query{
			Timestamp: ts,
			Domain:    strings.ToLower(fields["domain"]),
		},
	}

	switch pattern.Kind {
	case KindQuery:
		client := fields["client"]
		if i := strings.IndexByte(client, '#'); i >= 0 {
			client = client[:i]
		}
		entry.Query.Client = client
	case KindResult:
		entry.Query.Status = actionStatus[strings.Join(strings.Fields(fields["action"]), " ")]
	}
	return entry, nil
}

func (p *DnsmasqParser) parseTimestamp(raw string) (time.Time, error) {
	raw = strings.Join(strings.Fields(raw), " ")
	if len(raw) >= 19 && raw[4] == '-' {
		return time.ParseInLocation("2006-01-02 15:04:05", raw[:19], p.loc)
	}

	now := p.now().In(p.loc)
	t, err := time.ParseInLocation("Jan 2 15:04:05 2006", fmt.Sprintf("%s %d", raw, now.Year()), p.loc)
	if err != nil {
		return time.Time{}, err
	}
	if t.After(now.Add(24 * time.Hour)) {
		t = t.AddDate(-1, 0, 0)
	}
	return t, nil
}

// AddPattern compiles and adds a pattern, keeping priority order
func (p *DnsmasqParser) AddPattern(pattern *RegexPattern) error {
	compiled, err := regexp.Compile(pattern.PatternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	pattern.Pattern = compiled
	p.patterns = append(p.patterns, pattern)
	sort.SliceStable(p.patterns, func(i, j int) bool {
		return p.patterns[i].Priority > p.patterns[j].Priority
	})
	return nil
}

// AddDefaultPatterns installs the query, result and reply formats
func (p *DnsmasqParser) AddDefaultPatterns() {
	patterns := []*RegexPattern{
		{
			Name:        "query",
			PatternStr:  dnsmasqPrefix + `query\[(?P<qtype>\w+)\]\s+(?P<domain>\S+)\s+from\s+(?P<client>\S+)$`,
			Kind:        KindQuery,
			Priority:    100,
			Description: "Incoming query with its client",
		},
		{
			Name:        "result",
			PatternStr:  dnsmasqPrefix + `(?P<action>cached-stale|cached|forwarded|gravity blocked|regex blocked|exactly blocked|special domain|regex blacklisted|exactly blacklisted|blacklisted)\s+(?P<domain>\S+)\s+(?:to|is)\s+(?P<target>\S+)$`,
			Kind:        KindResult,
			Priority:    90,
			Description: "How the query was answered",
		},
		{
			Name:        "other",
			PatternStr:  dnsmasqPrefix + `(?:reply|config|validation|dnssec-query|DHCP\S*)\b`,
			Kind:        KindIgnored,
			Priority:    10,
			Description: "Replies and housekeeping lines",
		},
	}

	for _, pattern := range patterns {
		if err := p.AddPattern(pattern); err != nil {
			panic(err)
		}
	}
}
