package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	Name    string    `json:"name"`
	Count   int       `json:"count"`
	Created time.Time `json:"created_at"`
	Detail  string    `json:"detail" table:"wide"`
	Secret  string    `json:"-" table:"-"`
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatTable, "TABLE": FormatTable, "json": FormatJSON, "yml": FormatYAML, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestTable_Struct(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := NewFormatter(FormatTable, false).Format(&buf, row{Name: "alice", Count: 3, Created: created, Secret: "x"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "2026-01-02T03:04:05Z")
	assert.NotContains(t, out, "detail")
	assert.NotContains(t, out, "Secret")
}

func TestTable_Slice(t *testing.T) {
	var buf bytes.Buffer
	rows := []*row{{Name: "a", Count: 1, Detail: "d1"}, nil, {Name: "b", Count: 2}}
	require.NoError(t, NewFormatter(FormatTable, true).Format(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "COUNT", "CREATED_AT", "DETAIL"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"a", "1", "-", "d1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b", "2", "-", "-"}, strings.Fields(lines[2]))
}

func TestTable_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{NoHeaders: true}).Format(&buf, map[string]int{"b": 2, "a": 1}))
	assert.Equal(t, "a  1\nb  2\n", buf.String())
}

func TestTable_Prebuilt(t *testing.T) {
	tbl := &Table{Headers: []string{"X", "Y"}}
	tbl.AddRow("1", "2")
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, tbl))
	assert.Equal(t, "X  Y\n1  2\n", buf.String())
}

func TestTable_FallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, 42))
	assert.Equal(t, "42\n", buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON, false).Format(&buf, row{Name: "alice"}))
	assert.Contains(t, buf.String(), `"name": "alice"`)
	assert.NotContains(t, buf.String(), "Secret")
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML, false).Format(&buf, row{Name: "alice", Count: 3}))
	assert.Contains(t, buf.String(), "name: alice")
	assert.Contains(t, buf.String(), "count: 3")

	buf.Reset()
	require.NoError(t, NewFormatter(FormatYAML, false).Format(&buf, []string{"x", "y"}))
	assert.Contains(t, buf.String(), "items:")
}
