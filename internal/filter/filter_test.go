package filter

import (
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-username/pihole-log-viewer/internal/models"
)

func TestBuild_OmitsBlankFields(t *testing.T) {
	spec, err := Build(RawFields{IP: "  ", Domain: " example.com ", Lines: "0"})
	require.NoError(t, err)

	assert.Equal(t, Spec{Domain: "example.com"}, spec)
	assert.Equal(t, url.Values{"domain": {"example.com"}}, spec.Values())
}

func TestBuild_AllFields(t *testing.T) {
	spec, err := Build(RawFields{
		IP:        "192.168.1.",
		Domain:    "ads",
		StartDate: "2024-03-01",
		EndDate:   "2024-03-02",
		StartTime: "08:00",
		EndTime:   "18:30",
		Lines:     "500",
	})
	require.NoError(t, err)

	assert.Equal(t, 500, spec.Limit)
	v := spec.Values()
	assert.Equal(t, "192.168.1.", v.Get("ip"))
	assert.Equal(t, "2024-03-01", v.Get("start_date"))
	assert.Equal(t, "18:30", v.Get("end_time"))
	assert.Equal(t, "500", v.Get("lines"))
}

func TestBuild_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawFields
		field string
	}{
		{"non numeric lines", RawFields{Lines: "lots"}, ParamLines},
		{"negative lines", RawFields{Lines: "-5"}, ParamLines},
		{"bad start date", RawFields{StartDate: "03/01/2024"}, ParamStartDate},
		{"bad end date", RawFields{EndDate: "2024-13-01"}, ParamEndDate},
		{"bad start time", RawFields{StartTime: "25:00"}, ParamStartTime},
		{"bad end time", RawFields{EndTime: "noon"}, ParamEndTime},
		{"reversed dates", RawFields{StartDate: "2024-03-05", EndDate: "2024-03-01"}, ParamEndDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.raw)
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParse_RejectsInvalid(t *testing.T) {
	_, err := Parse(url.Values{"lines": {"abc"}})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSpec_Matches(t *testing.T) {
	entry := models.LogEntry{
		Timestamp: "2024-03-01 23:30:00",
		Domain:    "ads.Example.com",
		IP:        "192.168.1.20",
		Status:    "blocked",
	}

	tests := []struct {
		name string
		spec Spec
		want bool
	}{
		{"empty", Spec{}, true},
		{"domain case-insensitive", Spec{Domain: "example.COM"}, true},
		{"ip substring", Spec{IP: "168.1"}, true},
		{"ip mismatch", Spec{IP: "10.0."}, false},
		{"inside date range", Spec{StartDate: "2024-03-01", EndDate: "2024-03-01"}, true},
		{"after end date", Spec{EndDate: "2024-02-29"}, false},
		{"before start date", Spec{StartDate: "2024-03-02"}, false},
		{"time range", Spec{StartTime: "23:00", EndTime: "23:59"}, true},
		{"time range excludes", Spec{StartTime: "08:00", EndTime: "18:00"}, false},
		{"wraps midnight", Spec{StartTime: "22:00", EndTime: "02:00"}, true},
		{"end time inclusive", Spec{EndTime: "23:30"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.Matches(entry))
		})
	}
}

func TestSpec_MatchesUnparsableTimestamp(t *testing.T) {
	entry := models.LogEntry{Timestamp: "yesterday", Domain: "a.com"}
	assert.True(t, Spec{Domain: "a.com"}.Matches(entry))
	assert.False(t, Spec{StartDate: "2024-01-01"}.Matches(entry))
}

func TestSpec_Apply(t *testing.T) {
	entries := []models.LogEntry{
		{Domain: "a.com"}, {Domain: "b.com"}, {Domain: "a.org"}, {Domain: "xa.com"},
	}
	out := Spec{Domain: "a.", Limit: 2}.Apply(entries)
	require.Len(t, out, 2)
	assert.Equal(t, "a.com", out[0].Domain)
	assert.Equal(t, "a.org", out[1].Domain)
}

func genOptional(g gopter.Gen) gopter.Gen {
	return gen.OneGenOf(gen.Const(""), g)
}

func genDate() gopter.Gen {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return gen.IntRange(0, 3000).Map(func(days int) string {
		return base.AddDate(0, 0, days).Format("2006-01-02")
	})
}

func genClock() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(0, 23), gen.IntRange(0, 59)).Map(func(v []interface{}) string {
		return fmt.Sprintf("%02d:%02d", v[0].(int), v[1].(int))
	})
}

func TestSpecQueryRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Parse(spec.Values()) reconstructs the spec", prop.ForAll(
		func(ip, domain, start, end, from, to string, lines int) bool {
			if start != "" && end != "" && start > end {
				start, end = end, start
			}
			spec, err := Build(RawFields{
				IP: ip, Domain: domain,
				StartDate: start, EndDate: end,
				StartTime: from, EndTime: to,
				Lines: fmt.Sprint(lines),
			})
			if err != nil {
				return false
			}

			values := spec.Values()
			for key, v := range values {
				if len(v) != 1 || v[0] == "" {
					t.Logf("empty constraint for %s", key)
					return false
				}
			}

			parsed, err := Parse(values)
			return err == nil && parsed == spec
		},
		genOptional(gen.Identifier()),
		genOptional(gen.Identifier()),
		genOptional(genDate()),
		genOptional(genDate()),
		genOptional(genClock()),
		genOptional(genClock()),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}
