package pipeline

import (
	"errors"
	"fmt"

	"github.com/NamanSharma89/HospitalInsights/internal/join"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/NamanSharma89/HospitalInsights/internal/validate"
	"github.com/NamanSharma89/HospitalInsights/internal/workbook"
)

// Stage names a pipeline step.
type Stage string

const (
	StageRead      Stage = "read"
	StageResolve   Stage = "resolve"
	StageClean     Stage = "clean"
	StageClassify  Stage = "classify"
	StageNormalize Stage = "normalize"
	StageValidate  Stage = "validate"
	StageJoin      Stage = "join"
)

// StageError is a fatal error tagged with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
	if g := e.Guidance(); g != "" {
		msg += "\n" + g
	}
	return msg
}

func (e *StageError) Unwrap() error { return e.Err }

// Guidance suggests how to fix the input.
func (e *StageError) Guidance() string {
	var snf *workbook.SheetNotFoundError
	var mie *validate.MissingIdentifierError
	var ej *join.EmptyJoinError
	switch {
	case errors.As(e.Err, &snf):
		return fmt.Sprintf("Hint: name the %s sheet so it contains one of %q, or select it explicitly.",
			snf.Role, workbook.DefaultKeywords(snf.Role))
	case errors.As(e.Err, &mie):
		return fmt.Sprintf("Hint: add a %q column (or a column whose name contains ID or REGISTRY) to both sheets.",
			table.IdentifierColumn)
	case errors.As(e.Err, &ej):
		return fmt.Sprintf("Hint: check that %q values in the diagnosis sheet appear in the patient sheet.",
			table.IdentifierColumn)
	}
	return ""
}

func stageErr(s Stage, err error) error {
	return &StageError{Stage: s, Err: err}
}
