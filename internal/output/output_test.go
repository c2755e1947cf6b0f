package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable("DOMAIN", "COUNT").Colorize(func(col int, cell string) *color.Color {
		if col == 0 {
			return StatusColor("blocked")
		}
		return nil
	})
	table.AddRow("ads.example.com", "12")
	table.AddRow("a.io", "3")
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "DOMAIN           COUNT  ", lines[0])
	assert.Equal(t, "---------------  -----  ", lines[1])
	assert.Equal(t, "ads.example.com  12     ", lines[2])
	assert.Equal(t, "a.io             3      ", lines[3])
	assert.Equal(t, 2, table.Len())
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	p.Success("imported %d", 3)
	p.Warn("stale")
	p.Error("boom")
	require.NoError(t, p.JSON(map[string]int{"n": 1}))

	assert.Contains(t, out.String(), "✓ imported 3\n")
	assert.Contains(t, out.String(), "⚠ stale\n")
	assert.Contains(t, out.String(), "\"n\": 1")
	assert.Equal(t, "✗ boom\n", errOut.String())
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0, 10, 20))
	assert.Equal(t, "", Bar(5, 0, 20))
	assert.Equal(t, strings.Repeat("█", 10), Bar(5, 10, 20))
	assert.Equal(t, "█", Bar(1, 1000, 20))
}
