package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/NamanSharma89/HospitalInsights/internal/workbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tbl, err := table.FromColumns(
		&table.Column{Name: table.IdentifierColumn, Values: []table.Value{"A1", "B2"}},
		&table.Column{Name: "AGE", Values: []table.Value{34.0, nil}},
		&table.Column{Name: "DATE", Values: []table.Value{day, day.Add(90 * time.Minute)}},
		&table.Column{Name: "NOTE", Values: []table.Value{"has, comma", nil}},
	)
	require.NoError(t, err)
	return tbl
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sample(t)))
	want := strings.Join([]string{
		"REGISTRY ID,AGE,DATE,NOTE",
		`A1,34,2024-01-15,"has, comma"`,
		"B2,,2024-01-15 01:30:00,",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", 40)
	require.NoError(t, XLSX(&buf, Sheet{Name: "Merged", Table: sample(t)}, Sheet{Name: long, Table: sample(t)}))

	wb, err := workbook.Read(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Merged", strings.Repeat("x", 31)}, wb.SheetNames())

	rs, ok := wb.Sheet("Merged")
	require.True(t, ok)
	cleaned, _ := table.Clean(rs)
	assert.Equal(t, []string{table.IdentifierColumn, "AGE", "DATE", "NOTE"}, cleaned.Names())
	assert.Equal(t, 2, cleaned.NumRows())
	assert.Equal(t, int64(34), cleaned.Value(0, "AGE"))
	assert.Nil(t, cleaned.Value(1, "AGE"))
	assert.Equal(t, "2024-01-15", cleaned.Value(0, "DATE"))
}

func TestXLSXNoSheets(t *testing.T) {
	assert.Error(t, XLSX(&bytes.Buffer{}))
}
