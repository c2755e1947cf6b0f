package export

import (
	"time"

	"github.com/your-username/pihole-log-viewer/internal/models"
	"github.com/your-username/pihole-log-viewer/internal/status"
)

// Page geometry in millimetres
const (
	FirstRowY      = 75.0
	RowStep        = 8.0
	PageBottom     = 280.0
	NextPageTopY   = 20.0
	MaxDomainLen   = 40
	MaxActivityLen = 16
	Ellipsis       = "..."
)

// Row is one entry placed on the page
type Row struct {
	Timestamp string  `json:"timestamp"`
	Domain    string  `json:"domain"`
	Client    string  `json:"client"`
	Activity  string  `json:"activity"`
	Status    string  `json:"status"`
	Count     int     `json:"count"`
	Page      int     `json:"-"`
	Y         float64 `json:"-"`

	entry models.LogEntry
}

// Entry returns the untruncated source entry
func (r Row) Entry() models.LogEntry {
	return r.entry
}

// Document is a laid out export
type Document struct {
	Meta        models.ReportMeta `json:"meta"`
	GeneratedAt time.Time         `json:"generated_at"`
	Rows        []Row             `json:"rows"`
	Pages       int               `json:"pages"`
}

// Layout places every entry on a page. Rows advance RowStep from FirstRowY;
// once the cursor passes PageBottom a new page starts at NextPageTopY.
func Layout(entries []models.LogEntry, meta models.ReportMeta, now time.Time) Document {
	doc := Document{
		Meta:        meta,
		GeneratedAt: now,
		Rows:        make([]Row, 0, len(entries)),
		Pages:       1,
	}

	y := FirstRowY
	for _, e := range entries {
		if y > PageBottom {
			doc.Pages++
			y = NextPageTopY
		}
		doc.Rows = append(doc.Rows, Row{
			Timestamp: models.FormatTimestamp(e.Timestamp),
			Domain:    Truncate(e.DisplayDomain(), MaxDomainLen),
			Client:    e.DisplayIP(),
			Activity:  Truncate(e.DisplayActivity(), MaxActivityLen),
			Status:    status.Label(e.Status),
			Count:     e.Occurrences(),
			Page:      doc.Pages,
			Y:         y,
			entry:     e,
		})
		y += RowStep
	}
	return doc
}

// Truncate shortens s to at most max runes, ending in Ellipsis when cut
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= len(Ellipsis) {
		return string(runes[:max])
	}
	return string(runes[:max-len(Ellipsis)]) + Ellipsis
}
