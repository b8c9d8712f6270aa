package classify

import (
	"testing"

	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableWith(t *testing.T, names ...string) *table.Table {
	t.Helper()
	tbl := table.New(1)
	for _, n := range names {
		require.NoError(t, tbl.AddColumn(n, []table.Value{nil}))
	}
	return tbl
}

func TestRoles(t *testing.T) {
	tbl := tableWith(t,
		table.IdentifierColumn, "TRIAGE LEVEL", "PATIENT AGE", "SEX", "ADMISSION DATE",
		"DIAGNOSIS", "DIAGNOSIS DATE", "CONDITION", "DEPT", "DEPARTMENT", "NOTES")
	roles := Roles(tbl)

	assert.Equal(t, Identifier, roles.Role(table.IdentifierColumn))
	assert.Equal(t, Unclassified, roles.Role("TRIAGE LEVEL"))
	assert.Equal(t, Age, roles.Role("PATIENT AGE"))
	assert.Equal(t, Gender, roles.Role("SEX"))
	assert.Equal(t, []string{"ADMISSION DATE", "DIAGNOSIS DATE"}, roles.Columns(Date))
	assert.Equal(t, []string{"DIAGNOSIS", "CONDITION"}, roles.Columns(Diagnosis))
	dept, ok := roles.First(Department)
	require.True(t, ok)
	assert.Equal(t, "DEPT", dept)
	assert.Equal(t, Unclassified, roles.Role("DEPARTMENT"))
	assert.Equal(t, Unclassified, roles.Role("NOTES"))
	assert.Len(t, roles, tbl.NumCols())
}

func TestRolesNeverPicksTriageAsAge(t *testing.T) {
	roles := Roles(tableWith(t, "TRIAGE LEVEL", "TRIAGE"))
	assert.False(t, roles.Has(Age))
}

func TestAgePrecedence(t *testing.T) {
	roles := Roles(tableWith(t, "AGE GROUP", "PATIENT AGE", "AGE"))
	age, _ := roles.First(Age)
	assert.Equal(t, "AGE", age)

	roles = Roles(tableWith(t, "AGE GROUP", "PATIENT AGE"))
	age, _ = roles.First(Age)
	assert.Equal(t, "PATIENT AGE", age)

	roles = Roles(tableWith(t, "AGE GROUP"))
	age, _ = roles.First(Age)
	assert.Equal(t, "AGE GROUP", age)
}

func TestGenderPrefersExactName(t *testing.T) {
	roles := Roles(tableWith(t, "SEX", "GENDER"))
	g, _ := roles.First(Gender)
	assert.Equal(t, "GENDER", g)
	assert.Equal(t, Unclassified, roles.Role("SEX"))
}

func TestRolesIgnoreJoinSuffix(t *testing.T) {
	roles := Roles(tableWith(t, table.IdentifierColumn, "GENDER_PATIENT", "DIAGNOSIS_DIAG"))
	assert.Equal(t, Gender, roles.Role("GENDER_PATIENT"))
	assert.Equal(t, Diagnosis, roles.Role("DIAGNOSIS_DIAG"))
}

func TestRolesIsPure(t *testing.T) {
	tbl := tableWith(t, "PATIENT AGE", "SEX")
	_ = Roles(tbl)
	assert.Equal(t, []string{"PATIENT AGE", "SEX"}, tbl.Names())
}

func TestCanonicalize(t *testing.T) {
	tbl := tableWith(t, table.IdentifierColumn, "PATIENT AGE", "SEX")
	roles, renames := Canonicalize(tbl, Roles(tbl))

	assert.Equal(t, []string{table.IdentifierColumn, "AGE", "GENDER"}, tbl.Names())
	assert.Equal(t, Age, roles.Role("AGE"))
	assert.Equal(t, Gender, roles.Role("GENDER"))
	assert.Equal(t, []Rename{
		{Role: Age, From: "PATIENT AGE", To: "AGE"},
		{Role: Gender, From: "SEX", To: "GENDER"},
	}, renames)
}
