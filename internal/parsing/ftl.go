package parsing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

// FTL status codes folded onto the stored status tokens
var ftlStatus = map[int]string{
	1:  "blocked", // gravity
	2:  "forwarded",
	3:  "cached",
	4:  "blocked", // regex
	5:  "blacklisted",
	9:  "blocked", // gravity, CNAME
	10: "blocked", // regex, CNAME
	11: "blacklisted",
	15: "blocked", // database busy
	16: "blocked", // special domain
	17: "cached-stale",
}

// FTLStatus maps a pihole-FTL status code to a status token
func FTLStatus(code int) string {
	if s, ok := ftlStatus[code]; ok {
		return s
	}
	return StatusUnknown
}

// FTLQuery is the remote query whose pipe separated output FTLParser reads
func FTLQuery(afterID int64, since time.Time) string {
	where := fmt.Sprintf("id > %d", afterID)
	if afterID <= 0 && !since.IsZero() {
		where = fmt.Sprintf("timestamp >= %d", since.Unix())
	}
	return "SELECT id, timestamp, domain, client, status FROM queries WHERE " + where + " ORDER BY id;"
}

// FTLParser reads "id|timestamp|domain|client|status" rows produced by the
// sqlite3 shell over the FTL database. Timestamps are Unix seconds and are
// returned in UTC.
type FTLParser struct{}

func NewFTLParser() *FTLParser { return &FTLParser{} }

func (p *FTLParser) Name() string { return "ftl" }

func (p *FTLParser) CanParse(line string) bool {
	return strings.Count(line, "|") == 4
}

func (p *FTLParser) Parse(line string) (Entry, error) {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) != 5 {
		return Entry{}, fmt.Errorf("ftl row has %d fields, want 5", len(parts))
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("bad ftl id %q: %w", parts[0], err)
	}
	secs, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("bad ftl timestamp %q: %w", parts[1], err)
	}
	code, err := strconv.Atoi(parts[4])
	if err != nil {
		return Entry{}, fmt.Errorf("bad ftl status %q: %w", parts[4], err)
	}

	whole, frac := math.Modf(secs)
	return Entry{
		Kind: KindRow,
		Query: models.Query{
			FTLID:     &id,
			Timestamp: time.Unix(int64(whole), int64(frac*1e9)).UTC(),
			Domain:    strings.ToLower(parts[2]),
			Client:    parts[3],
			Status:    FTLStatus(code),
		},
	}, nil
}
