package validate

import (
	"errors"
	"testing"

	"github.com/NamanSharma89/HospitalInsights/internal/analysis"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableMissingIdentifier(t *testing.T) {
	tbl, err := table.FromColumns(&table.Column{Name: "NAME", Values: []table.Value{"x", "y"}})
	require.NoError(t, err)

	res := Table(tbl)
	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "REGISTRY ID")
	assert.Equal(t, 2, res.Info.Rows)
	assert.Equal(t, 1, res.Info.Columns)

	err = Identifier("patient", tbl)
	var mie *MissingIdentifierError
	require.True(t, errors.As(err, &mie))
	assert.Equal(t, "patient", mie.Table)
	assert.ErrorIs(t, err, ErrMissingIdentifier)
}

func TestTableDuplicateIDsWarnOnly(t *testing.T) {
	tbl, err := table.FromColumns(
		&table.Column{Name: table.IdentifierColumn, Values: []table.Value{"A1", "A1", "B2", "B2"}},
		&table.Column{Name: "DIAGNOSIS", Values: []table.Value{"FLU", "FLU", "COLD", nil}},
	)
	require.NoError(t, err)

	res := Table(tbl)
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 2, res.Info.DuplicateIDs)
	assert.Equal(t, 1, res.Info.DuplicateRows)
	assert.Equal(t, 1, res.Info.Nulls)
	assert.Equal(t, analysis.KindCategorical, res.Info.ColumnTypes["DIAGNOSIS"])
	assert.NoError(t, Identifier("diagnosis", tbl))
}

func TestTableEmpty(t *testing.T) {
	tbl := table.New(0)
	require.NoError(t, tbl.AddColumn(table.IdentifierColumn, []table.Value{}))
	res := Table(tbl)
	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "table is empty")
	assert.Equal(t, analysis.KindEmpty, res.Info.ColumnTypes[table.IdentifierColumn])
}
