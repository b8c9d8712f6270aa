package join

import (
	"errors"
	"fmt"
	"testing"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, cols ...*table.Column) *table.Table {
	t.Helper()
	tbl, err := table.FromColumns(cols...)
	require.NoError(t, err)
	return tbl
}

func col(name string, vals ...table.Value) *table.Column {
	return &table.Column{Name: name, Values: vals}
}

func TestMergeLeftJoin(t *testing.T) {
	diag := mustTable(t,
		col(table.IdentifierColumn, "A1", "B2"),
		col("DIAGNOSIS", "FLU", "COLD"),
	)
	pat := mustTable(t,
		col(table.IdentifierColumn, "A1"),
		col("AGE", 34.0),
		col("GENDER", "MALE"),
	)

	res, err := Merge(diag, pat, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, []string{table.IdentifierColumn, "DIAGNOSIS", "AGE", "GENDER"}, res.Table.Names())
	require.Equal(t, 2, res.Table.NumRows())
	assert.Equal(t, "A1", res.Table.Value(0, table.IdentifierColumn))
	assert.Equal(t, 34.0, res.Table.Value(0, "AGE"))
	assert.Equal(t, "MALE", res.Table.Value(0, "GENDER"))
	assert.Equal(t, "B2", res.Table.Value(1, table.IdentifierColumn))
	assert.Nil(t, res.Table.Value(1, "AGE"))
	assert.Nil(t, res.Table.Value(1, "GENDER"))

	assert.Equal(t, MatchReport{Total: 2, Matched: 1, Unmatched: 1}, res.Report)
	assert.InDelta(t, 0.5, res.Report.Rate(), 1e-9)
	assert.Zero(t, res.FanOut)
}

func TestMergeSuffixesCollisions(t *testing.T) {
	diag := mustTable(t,
		col(table.IdentifierColumn, "A1"),
		col("NOTES", "diag note"),
	)
	pat := mustTable(t,
		col(table.IdentifierColumn, "A1"),
		col("NOTES", "patient note"),
	)
	res, err := Merge(diag, pat, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{table.IdentifierColumn, "NOTES_DIAG", "NOTES_PATIENT"}, res.Table.Names())
	assert.Equal(t, []string{"NOTES"}, res.Suffixed)
}

func TestMergeEmptyJoin(t *testing.T) {
	diag := mustTable(t, col(table.IdentifierColumn, "X1", "X2"))
	pat := mustTable(t, col(table.IdentifierColumn, "A1"))

	res, err := Merge(diag, pat, DefaultOptions())
	assert.Nil(t, res)
	var ej *EmptyJoinError
	require.True(t, errors.As(err, &ej))
	assert.Equal(t, 2, ej.DiagnosisRows)
}

func TestMergeEmptyDiagnosisIsEmptyJoin(t *testing.T) {
	diag := table.New(0)
	require.NoError(t, diag.AddColumn(table.IdentifierColumn, []table.Value{}))
	pat := mustTable(t, col(table.IdentifierColumn, "A1"))

	_, err := Merge(diag, pat, DefaultOptions())
	var ej *EmptyJoinError
	assert.True(t, errors.As(err, &ej))
}

func TestMergeMissingKey(t *testing.T) {
	diag := mustTable(t, col("DIAGNOSIS", "FLU"))
	pat := mustTable(t, col(table.IdentifierColumn, "A1"))
	_, err := Merge(diag, pat, DefaultOptions())
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestMergeDuplicatePatients(t *testing.T) {
	diag := mustTable(t,
		col(table.IdentifierColumn, "A1", "A1", "B2"),
		col("DIAGNOSIS", "FLU", "COUGH", "COLD"),
	)
	pat := mustTable(t,
		col(table.IdentifierColumn, "A1", "A1", "B2"),
		col("AGE", 30.0, 31.0, 50.0),
	)

	res, err := Merge(diag, pat, Options{DedupePatients: true})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Table.NumRows())
	assert.Equal(t, 1, res.DuplicatesDropped)
	assert.Equal(t, 30.0, res.Table.Value(1, "AGE"), "first patient row wins")

	res, err = Merge(diag, pat, Options{DedupePatients: false})
	require.NoError(t, err)
	assert.Equal(t, 5, res.Table.NumRows())
	assert.Equal(t, 2, res.FanOut)
	assert.Equal(t, MatchReport{Total: 5, Matched: 5}, res.Report, "report counts merged rows")
}

func TestMergeReportIgnoresAllNullPatientRows(t *testing.T) {
	diag := mustTable(t,
		col(table.IdentifierColumn, "A1", "B2", "C3"),
		col("DIAGNOSIS", "FLU", "COLD", "ASTHMA"),
	)
	pat := mustTable(t,
		col(table.IdentifierColumn, "A1", "B2"),
		col("AGE", 30.0, nil),
		col("GENDER", "FEMALE", nil),
	)

	res, err := Merge(diag, pat, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, MatchReport{Total: 3, Matched: 1, Unmatched: 2}, res.Report)
}

func TestMergeReportFollowsSuffixedPatientColumns(t *testing.T) {
	diag := mustTable(t,
		col(table.IdentifierColumn, "A1", "B2"),
		col("NOTES", "d1", "d2"),
	)
	pat := mustTable(t,
		col(table.IdentifierColumn, "A1", "B2"),
		col("NOTES", "p1", nil),
	)

	res, err := Merge(diag, pat, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, MatchReport{Total: 2, Matched: 1, Unmatched: 1}, res.Report)
}

func TestMergeIdentifierOnlyPatientsStillJoin(t *testing.T) {
	diag := mustTable(t, col(table.IdentifierColumn, "A1"), col("DIAGNOSIS", "FLU"))
	pat := mustTable(t, col(table.IdentifierColumn, "A1"))

	res, err := Merge(diag, pat, DefaultOptions())
	require.NoError(t, err, "an identifier overlap is not an empty join")
	assert.Equal(t, 1, res.Table.NumRows())
	assert.Equal(t, MatchReport{Total: 1, Unmatched: 1}, res.Report)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	diag := mustTable(t, col(table.IdentifierColumn, "A1"), col("NOTES", "x"))
	pat := mustTable(t, col(table.IdentifierColumn, "A1", "A1"), col("NOTES", "y", "z"))
	_, err := Merge(diag, pat, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{table.IdentifierColumn, "NOTES"}, diag.Names())
	assert.Equal(t, 2, pat.NumRows())
}

// With de-duplication on, the merged table always has one row per diagnosis row,
// Matched + Unmatched covers every merged row, and the join fails exactly when
// the two sides share no identifier.
func TestMergeRowCountProperty(t *testing.T) {
	faker := gofakeit.New(42)
	for iter := 0; iter < 50; iter++ {
		nPat := faker.Number(1, 30)
		nDiag := faker.Number(1, 60)

		ids := make([]table.Value, nPat)
		ages := make([]table.Value, nPat)
		for i := range ids {
			ids[i] = fmt.Sprintf("P%d", faker.Number(1, 40))
			ages[i] = float64(faker.Number(0, 99))
		}
		dids := make([]table.Value, nDiag)
		names := make([]table.Value, nDiag)
		for i := range dids {
			dids[i] = fmt.Sprintf("P%d", faker.Number(1, 40))
			names[i] = faker.RandomString([]string{"FLU", "COLD", "ASTHMA", "DIABETES"})
		}
		diag := mustTable(t, col(table.IdentifierColumn, dids...), col("DIAGNOSIS", names...))
		pat := mustTable(t, col(table.IdentifierColumn, ids...), col("AGE", ages...))

		patIDs := map[table.Value]bool{}
		for _, id := range ids {
			patIDs[id] = true
		}
		overlap := 0
		for _, id := range dids {
			if patIDs[id] {
				overlap++
			}
		}

		res, err := Merge(diag, pat, DefaultOptions())
		var ej *EmptyJoinError
		if errors.As(err, &ej) {
			assert.Zero(t, overlap, "empty join reported although identifiers overlap")
			assert.Equal(t, nDiag, ej.DiagnosisRows)
			continue
		}
		require.NoError(t, err)
		assert.Positive(t, overlap)
		assert.Equal(t, nDiag, res.Table.NumRows())
		assert.Equal(t, nDiag, res.Report.Total)
		assert.Equal(t, overlap, res.Report.Matched, "every patient row carries an age")
		assert.Equal(t, res.Report.Total, res.Report.Matched+res.Report.Unmatched)
		assert.Zero(t, res.FanOut)
	}
}
