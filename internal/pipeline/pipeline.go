// Package pipeline turns a hospital workbook into cleaned patient and diagnosis
// tables, joins them, and reports what happened along the way.
package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/NamanSharma89/HospitalInsights/internal/analysis"
	"github.com/NamanSharma89/HospitalInsights/internal/classify"
	"github.com/NamanSharma89/HospitalInsights/internal/diag"
	"github.com/NamanSharma89/HospitalInsights/internal/join"
	"github.com/NamanSharma89/HospitalInsights/internal/normalize"
	"github.com/NamanSharma89/HospitalInsights/internal/table"
	"github.com/NamanSharma89/HospitalInsights/internal/validate"
	"github.com/NamanSharma89/HospitalInsights/internal/workbook"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	patientTable   = "patient"
	diagnosisTable = "diagnosis"
	mergedTable    = "merged"
)

// Options configures one pipeline.
type Options struct {
	// PatientSheet and DiagnosisSheet select sheets by name, bypassing keyword resolution.
	PatientSheet   string
	DiagnosisSheet string
	// PatientKeywords and DiagnosisKeywords override the default sheet keywords.
	PatientKeywords   []string
	DiagnosisKeywords []string
	Normalize         normalize.Options
	Join              join.Options
	// TopDiagnoses limits the summary's diagnosis list.
	TopDiagnoses int
	// Now stamps the summary; defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		Normalize:    normalize.DefaultOptions(),
		Join:         join.DefaultOptions(),
		TopDiagnoses: 10,
	}
}

// Validations holds the validation result of each table.
type Validations struct {
	Patient   validate.Result `json:"patient"`
	Diagnosis validate.Result `json:"diagnosis"`
	Merged    validate.Result `json:"merged"`
}

// Result is everything one run produced. Tables are owned by the caller.
type Result struct {
	RunID             string
	Source            string
	PatientSheet      string
	DiagnosisSheet    string
	Patients          *table.Table
	Diagnoses         *table.Table
	Merged            *table.Table
	Match             join.MatchReport
	DuplicatesDropped int
	FanOut            int
	Validation        Validations
	Summary           analysis.Summary
	Diagnostics       []diag.Diagnostic
}

// Roles classifies the columns of any table of this result.
func (r *Result) Roles(t *table.Table) classify.RoleMap {
	return classify.Roles(t)
}

// Pipeline processes workbooks. It holds no per-run state, so one Pipeline may
// serve concurrent Process calls.
type Pipeline struct {
	opts    Options
	logger  *zap.Logger
	metrics *Metrics
}

// New builds a pipeline. A nil logger discards logs; nil metrics are not recorded.
func New(opts Options, logger *zap.Logger, metrics *Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts, logger: logger, metrics: metrics}
}

// ProcessFile reads and processes a workbook from disk.
func (p *Pipeline) ProcessFile(path string) (*Result, error) {
	start := time.Now()
	wb, err := workbook.ReadFile(path)
	if err != nil {
		p.metrics.run(string(StageRead), time.Since(start).Seconds())
		return nil, stageErr(StageRead, err)
	}
	return p.run(wb, path, start)
}

// Process runs the pipeline on workbook bytes. On error the result is nil.
func (p *Pipeline) Process(data []byte) (*Result, error) {
	start := time.Now()
	wb, err := workbook.Read(data)
	if err != nil {
		p.metrics.run(string(StageRead), time.Since(start).Seconds())
		return nil, stageErr(StageRead, err)
	}
	return p.run(wb, "", start)
}

func (p *Pipeline) run(wb *workbook.Workbook, source string, start time.Time) (*Result, error) {
	r := &run{p: p, res: &Result{RunID: uuid.NewString(), Source: source}}
	r.log = p.logger.With(zap.String("run_id", r.res.RunID))
	if source != "" {
		r.log = r.log.With(zap.String("source", source))
	}

	err := r.execute(wb)
	elapsed := time.Since(start)
	if err != nil {
		outcome := "error"
		var se *StageError
		if errors.As(err, &se) {
			outcome = string(se.Stage)
		}
		p.metrics.run(outcome, elapsed.Seconds())
		r.log.Warn("workbook rejected", zap.Error(err), zap.Duration("elapsed", elapsed))
		return nil, err
	}
	p.metrics.run("ok", elapsed.Seconds())
	r.res.Diagnostics = r.diags.Items()
	r.log.Info("workbook processed",
		zap.String("patient_sheet", r.res.PatientSheet),
		zap.String("diagnosis_sheet", r.res.DiagnosisSheet),
		zap.Int("merged_rows", r.res.Merged.NumRows()),
		zap.Int("matched", r.res.Match.Matched),
		zap.Int("unmatched", r.res.Match.Unmatched),
		zap.Int("diagnostics", len(r.res.Diagnostics)),
		zap.Duration("elapsed", elapsed))
	return r.res, nil
}

// run carries the state of a single Process call.
type run struct {
	p     *Pipeline
	res   *Result
	diags diag.Log
	log   *zap.Logger
}

func (r *run) execute(wb *workbook.Workbook) error {
	opts := r.p.opts
	sheets := wb.SheetNames()
	r.log.Debug("workbook opened", zap.Strings("sheets", sheets))

	patientName, err := workbook.Select(sheets, workbook.RolePatient, opts.PatientSheet, opts.PatientKeywords)
	if err != nil {
		return stageErr(StageResolve, err)
	}
	diagnosisName, err := workbook.Select(sheets, workbook.RoleDiagnosis, opts.DiagnosisSheet, opts.DiagnosisKeywords)
	if err != nil {
		return stageErr(StageResolve, err)
	}
	r.res.PatientSheet, r.res.DiagnosisSheet = patientName, diagnosisName
	r.add(StageResolve, patientTable, "", diag.KindSheetResolved, fmt.Sprintf("using sheet %q", patientName), 0)
	r.add(StageResolve, diagnosisTable, "", diag.KindSheetResolved, fmt.Sprintf("using sheet %q", diagnosisName), 0)

	patientRaw, _ := wb.Sheet(patientName)
	diagnosisRaw, _ := wb.Sheet(diagnosisName)
	patients := r.clean(patientTable, patientRaw)
	diagnoses := r.clean(diagnosisTable, diagnosisRaw)

	if err := validate.Identifier(patientTable, patients); err != nil {
		return stageErr(StageValidate, err)
	}
	if err := validate.Identifier(diagnosisTable, diagnoses); err != nil {
		return stageErr(StageValidate, err)
	}

	patients = r.prepare(patientTable, patients)
	diagnoses = r.prepare(diagnosisTable, diagnoses)

	r.res.Validation.Patient = r.validate(patientTable, patients)
	r.res.Validation.Diagnosis = r.validate(diagnosisTable, diagnoses)

	joined, err := join.Merge(diagnoses, patients, opts.Join)
	if err != nil {
		return stageErr(StageJoin, err)
	}
	r.recordJoin(joined)

	r.res.Patients, r.res.Diagnoses, r.res.Merged = patients, diagnoses, joined.Table
	r.res.Validation.Merged = r.validate(mergedTable, joined.Table)
	r.p.metrics.rows(patientTable, patients.NumRows())
	r.p.metrics.rows(diagnosisTable, diagnoses.NumRows())
	r.p.metrics.rows(mergedTable, joined.Table.NumRows())

	r.res.Summary = analysis.Summarize(analysis.SummaryInput{
		Patients:    patients,
		Diagnoses:   diagnoses,
		Merged:      joined.Table,
		Match:       joined.Report,
		TopN:        opts.TopDiagnoses,
		GeneratedAt: opts.Now(),
	})
	return nil
}

func (r *run) clean(name string, rs table.RawSheet) *table.Table {
	t, st := table.Clean(rs)
	if st.DroppedRows > 0 {
		r.add(StageClean, name, "", diag.KindDroppedEmpty, "dropped empty rows", st.DroppedRows)
	}
	if st.DroppedColumns > 0 {
		r.add(StageClean, name, "", diag.KindDroppedEmpty, "dropped empty columns", st.DroppedColumns)
	}
	suffixed := make([]string, 0, len(st.Suffixed))
	for s := range st.Suffixed {
		suffixed = append(suffixed, s)
	}
	sort.Strings(suffixed)
	for _, s := range suffixed {
		r.add(StageClean, name, s, diag.KindHeaderCollision, fmt.Sprintf("duplicate header %q renamed", st.Suffixed[s]), 1)
	}
	if st.IdentifierFrom != "" {
		r.add(StageClean, name, table.IdentifierColumn, diag.KindColumnRenamed,
			fmt.Sprintf("renamed %q to %q", st.IdentifierFrom, table.IdentifierColumn), 0)
	}
	r.log.Debug("sheet cleaned", zap.String("table", name), zap.Int("rows", t.NumRows()), zap.Strings("columns", t.Names()))
	return t
}

// prepare classifies, canonicalizes and normalizes a table, then makes identifiers
// trimmed strings and drops rows without one.
func (r *run) prepare(name string, t *table.Table) *table.Table {
	roles, renames := classify.Canonicalize(t, classify.Roles(t))
	for _, rn := range renames {
		r.add(StageClassify, name, rn.To, diag.KindColumnRenamed, fmt.Sprintf("renamed %q to %q", rn.From, rn.To), 0)
	}
	for _, cr := range roles {
		if cr.Role != classify.Unclassified {
			r.add(StageClassify, name, cr.Column, diag.KindRoleClassification, string(cr.Role), 0)
		}
	}

	for _, rep := range normalize.Apply(t, roles, r.p.opts.Normalize) {
		r.recordNormalize(name, rep)
	}

	id, _ := t.Column(table.IdentifierColumn)
	for i, v := range id.Values {
		if k, ok := join.Key(v); ok {
			id.Values[i] = k
		} else {
			id.Values[i] = nil
		}
	}
	before := t.NumRows()
	kept := t.Filter(func(row table.Row) bool { return row.Get(table.IdentifierColumn) != nil })
	if dropped := before - kept.NumRows(); dropped > 0 {
		r.add(StageNormalize, name, table.IdentifierColumn, diag.KindNullIdentifier, "dropped rows without an identifier", dropped)
		r.p.metrics.recovered(string(diag.KindNullIdentifier), dropped)
	}
	return kept
}

func (r *run) recordNormalize(name string, rep normalize.ColumnReport) {
	if rep.Failed > 0 {
		kind := diag.KindTypeCoercion
		if rep.Role == classify.Date {
			kind = diag.KindDateParse
		}
		r.add(StageNormalize, name, rep.Column, kind,
			fmt.Sprintf("%d of %d values could not be read as %s and were cleared", rep.Failed, rep.NonNull, rep.Role), rep.Failed)
		r.p.metrics.recovered(string(kind), rep.Failed)
	}
	if rep.OutOfRange > 0 {
		r.add(StageNormalize, name, rep.Column, diag.KindOutOfRange,
			fmt.Sprintf("%d values outside [%g, %g] were cleared", rep.OutOfRange, r.p.opts.Normalize.AgeMin, r.p.opts.Normalize.AgeMax), rep.OutOfRange)
		r.p.metrics.recovered(string(diag.KindOutOfRange), rep.OutOfRange)
	}
	if rep.Nulled > 0 {
		r.add(StageNormalize, name, rep.Column, diag.KindTypeCoercion, "placeholder values cleared", rep.Nulled)
		r.p.metrics.recovered(string(diag.KindTypeCoercion), rep.Nulled)
	}
	if rep.Role == classify.Gender && len(rep.Values) > 0 {
		r.add(StageNormalize, name, rep.Column, diag.KindGenderMapping, fmt.Sprintf("%d distinct values", len(rep.Values)), rep.NonNull)
	}
}

func (r *run) validate(name string, t *table.Table) validate.Result {
	res := validate.Table(t)
	for _, w := range res.Warnings {
		r.add(StageValidate, name, "", diag.KindValidationWarning, w, 0)
	}
	for _, e := range res.Errors {
		r.add(StageValidate, name, "", diag.KindValidationWarning, e, 0)
	}
	return res
}

func (r *run) recordJoin(j *join.Result) {
	r.res.Match = j.Report
	r.res.DuplicatesDropped = j.DuplicatesDropped
	r.res.FanOut = j.FanOut
	r.p.metrics.matchRate(j.Report.Rate())
	if j.DuplicatesDropped > 0 {
		r.add(StageJoin, patientTable, table.IdentifierColumn, diag.KindDuplicatePatients,
			"duplicate patient identifiers dropped, first row kept", j.DuplicatesDropped)
	}
	if j.FanOut > 0 {
		r.add(StageJoin, mergedTable, "", diag.KindJoinFanOut, "duplicate patients produced extra merged rows", j.FanOut)
	}
	for _, c := range j.Suffixed {
		r.add(StageJoin, mergedTable, c, diag.KindHeaderCollision,
			fmt.Sprintf("column on both sides, suffixed %s and %s", table.DiagnosisSuffix, table.PatientSuffix), 0)
	}
	r.add(StageJoin, mergedTable, "", diag.KindMergeStats,
		fmt.Sprintf("%d of %d merged rows carry patient data (%.1f%%), %d without",
			j.Report.Matched, j.Report.Total, j.Report.Rate()*100, j.Report.Unmatched), j.Report.Matched)
}

func (r *run) add(stage Stage, tbl, col string, kind diag.Kind, msg string, count int) {
	r.diags.Add(diag.Diagnostic{Stage: string(stage), Table: tbl, Column: col, Kind: kind, Message: msg, Count: count})
}
