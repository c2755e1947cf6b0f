package parsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

func fixedDnsmasq(now time.Time) *DnsmasqParser {
	p := NewDnsmasqParser(time.UTC)
	p.now = func() time.Time { return now }
	return p
}

func TestFTLParser(t *testing.T) {
	p := NewFTLParser()
	line := "1042|1709280000|Ads.Example.com|192.168.1.20|1"
	require.True(t, p.CanParse(line))

	entry, err := p.Parse(line)
	require.NoError(t, err)
	assert.Equal(t, KindRow, entry.Kind)
	require.NotNil(t, entry.Query.FTLID)
	assert.Equal(t, int64(1042), *entry.Query.FTLID)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), entry.Query.Timestamp)
	assert.Equal(t, "ads.example.com", entry.Query.Domain)
	assert.Equal(t, "192.168.1.20", entry.Query.Client)
	assert.Equal(t, "blocked", entry.Query.Status)

	for _, bad := range []string{"x|1709280000|a.com|1.1.1.1|2", "1|soon|a.com|1.1.1.1|2", "1|1709280000|a.com|1.1.1.1|?"} {
		_, err := p.Parse(bad)
		assert.Error(t, err, bad)
	}
	assert.False(t, p.CanParse("1|2|3"))
}

func TestFTLStatus(t *testing.T) {
	tests := map[int]string{
		1: "blocked", 2: "forwarded", 3: "cached", 4: "blocked", 5: "blacklisted",
		9: "blocked", 10: "blocked", 11: "blacklisted", 15: "blocked", 16: "blocked",
		17: "cached-stale", 0: StatusUnknown, 12: StatusUnknown, 99: StatusUnknown,
	}
	for code, want := range tests {
		assert.Equal(t, want, FTLStatus(code), "code %d", code)
	}
}

func TestFTLQuery(t *testing.T) {
	since := time.Unix(1709280000, 0)
	assert.Equal(t, "SELECT id, timestamp, domain, client, status FROM queries WHERE id > 41 ORDER BY id;", FTLQuery(41, since))
	assert.Equal(t, "SELECT id, timestamp, domain, client, status FROM queries WHERE timestamp >= 1709280000 ORDER BY id;", FTLQuery(0, since))
	assert.Contains(t, FTLQuery(0, time.Time{}), "WHERE id > 0")
}

func TestDnsmasqParser_Lines(t *testing.T) {
	p := fixedDnsmasq(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	entry, err := p.Parse("Mar  1 08:00:00 dnsmasq[812]: query[A] Ads.Example.com from 192.168.1.20")
	require.NoError(t, err)
	assert.Equal(t, KindQuery, entry.Kind)
	assert.Equal(t, "ads.example.com", entry.Query.Domain)
	assert.Equal(t, "192.168.1.20", entry.Query.Client)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), entry.Query.Timestamp)

	entry, err = p.Parse("Mar  1 08:00:00 dnsmasq[812]: gravity blocked ads.example.com is 0.0.0.0")
	require.NoError(t, err)
	assert.Equal(t, KindResult, entry.Kind)
	assert.Equal(t, "blocked", entry.Query.Status)

	entry, err = p.Parse("2024-03-01 08:00:00.123 pihole-FTL[812]: 7 192.168.1.20/53211 cached-stale example.com is 1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "cached-stale", entry.Query.Status)

	entry, err = p.Parse("Mar  1 08:00:00 dnsmasq[812]: reply example.com is 1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, KindIgnored, entry.Kind)

	_, err = p.Parse("Mar  1 08:00:00 dnsmasq[812]: started, version 2.89")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestDnsmasqParser_YearRollover(t *testing.T) {
	p := fixedDnsmasq(time.Date(2024, 1, 1, 0, 10, 0, 0, time.UTC))

	entry, err := p.Parse("Dec 31 23:59:59 dnsmasq[812]: query[A] a.com from 10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 2023, entry.Query.Timestamp.Year())

	entry, err = p.Parse("Jan  1 00:05:00 dnsmasq[812]: query[A] a.com from 10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, 2024, entry.Query.Timestamp.Year())
}

func TestManager_ParseAllPairsQueriesWithResults(t *testing.T) {
	m := NewManager(NewFTLParser(), fixedDnsmasq(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	lines := []string{
		"Mar  1 08:00:00 dnsmasq[812]: query[A] ads.example.com from 192.168.1.20",
		"Mar  1 08:00:00 dnsmasq[812]: query[A] example.com from 192.168.1.21",
		"Mar  1 08:00:00 dnsmasq[812]: gravity blocked ads.example.com is 0.0.0.0",
		"Mar  1 08:00:01 dnsmasq[812]: forwarded example.com to 1.1.1.1",
		"Mar  1 08:00:01 dnsmasq[812]: reply example.com is 93.184.216.34",
		"Mar  1 08:00:02 dnsmasq[812]: query[A] example.com from 192.168.1.22",
		"Mar  1 08:00:02 dnsmasq[812]: cached example.com is 93.184.216.34",
		"Mar  1 08:00:03 dnsmasq[812]: query[A] slow.net from 192.168.1.23",
		"Mar  1 08:00:04 dnsmasq[812]: forwarded orphan.org to 1.1.1.1",
		"",
		"not a log line",
		"5|1709280000|ftl.example|10.0.0.9|3",
	}

	got := m.ParseAll(lines)
	require.Len(t, got, 5)

	status := func(q models.Query) string { return q.Domain + "/" + q.Client + "/" + q.Status }
	assert.Equal(t, "ads.example.com/192.168.1.20/blocked", status(got[0]))
	assert.Equal(t, "example.com/192.168.1.21/forwarded", status(got[1]))
	assert.Equal(t, "example.com/192.168.1.22/cached", status(got[2]))
	assert.Equal(t, "slow.net/192.168.1.23/unknown", status(got[3]))
	assert.Equal(t, "ftl.example/10.0.0.9/cached", status(got[4]))

	st := m.Stats()
	assert.Equal(t, int64(11), st.TotalParsed)
	assert.Equal(t, int64(1), st.FailureCount)
	assert.Equal(t, int64(1), st.ParserUsage["ftl"])
	assert.Equal(t, int64(9), st.ParserUsage["dnsmasq"])
}
