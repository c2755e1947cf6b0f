package detail

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

func snapshot() models.LogResultSet {
	return models.LogResultSet{
		Entries: []models.LogEntry{
			{Domain: "www.example.com", IP: "10.0.0.1", Count: models.IntPtr(2)},
			{Domain: "tracker.net", IP: "10.0.0.2"},
			{Domain: "EXAMPLE.com", IP: "10.0.0.3"},
			{Domain: "example.community.org", IP: "10.0.0.4"},
		},
		TotalFound: 4,
	}
}

func TestFor_SubstringMatchInOrder(t *testing.T) {
	d := For("example.com", snapshot())
	require.False(t, d.Empty())
	require.Len(t, d.Entries, 3)
	assert.Equal(t, "10.0.0.1", d.Entries[0].IP)
	assert.Equal(t, "10.0.0.3", d.Entries[1].IP)
	assert.Equal(t, "10.0.0.4", d.Entries[2].IP)
	assert.Equal(t, 4, d.Occurrences())
}

func TestFor_NoMatchIsEmptyNotError(t *testing.T) {
	d := For("nonexistent", snapshot())
	assert.True(t, d.Empty())
	assert.NotNil(t, d.Entries)
	assert.Equal(t, "nonexistent", d.Domain)
}

func TestFor_BlankToken(t *testing.T) {
	assert.True(t, For("   ", snapshot()).Empty())
}

func TestFor_EmptySnapshot(t *testing.T) {
	assert.True(t, For("example.com", models.LogResultSet{}).Empty())
}

func TestForProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("every match contains the token and order is preserved", prop.ForAll(
		func(domains []string, token string) bool {
			var rs models.LogResultSet
			for _, d := range domains {
				rs.Entries = append(rs.Entries, models.LogEntry{Domain: d})
			}

			d := For(token, rs)
			next := 0
			for _, m := range d.Entries {
				if !strings.Contains(strings.ToLower(m.Domain), strings.ToLower(token)) {
					return false
				}
				for next < len(rs.Entries) && rs.Entries[next].Domain != m.Domain {
					next++
				}
				if next == len(rs.Entries) {
					return false
				}
				next++
			}
			return true
		},
		gen.SliceOf(gen.OneConstOf("a.com", "b.a.com", "c.org", "A.COM.net")),
		gen.OneConstOf("a.com", "org", "zzz"),
	))

	properties.TestingRun(t)
}
