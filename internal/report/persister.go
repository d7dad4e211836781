// Package report turns a completed session into a stored report and its
// exported document.
package report

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/export"
	"github.com/kingrea/reportdesk/internal/form"
	"github.com/kingrea/reportdesk/internal/logging"
	"github.com/kingrea/reportdesk/internal/session"
	"github.com/kingrea/reportdesk/internal/store"
)

// DocumentWriter renders a document and returns its path.
type DocumentWriter interface {
	Write(doc export.Document) (string, error)
}

// Store is the persistence the persister needs.
type Store interface {
	SaveReport(ctx context.Context, report *store.Report) (int64, error)
	GetReport(ctx context.Context, id int64) (*store.Report, error)
}

// Result describes a finalized report. When Orphaned is true the document
// at FilePath exists but no database record references it.
type Result struct {
	FileName string
	FilePath string
	ReportID int64
	Orphaned bool
}

// Persister writes the document first, then the database record.
type Persister struct {
	docs  DocumentWriter
	store Store
	log   *logging.Logger
}

// NewPersister wires a persister.
func NewPersister(docs DocumentWriter, st Store, log *logging.Logger) *Persister {
	if log == nil {
		log = logging.Nop()
	}
	return &Persister{docs: docs, store: st, log: log.With("component", "report")}
}

// Finalize exports and stores a fully answered session. Incomplete sessions
// and invalid headers are rejected before any file or database write.
func (p *Persister) Finalize(ctx context.Context, s *session.Session) (Result, error) {
	const op = "report.Finalize"
	if s == nil || s.Len() == 0 {
		return Result{}, apperr.Validation(op, "нет ответов для сохранения")
	}
	if ok, first := s.AllAnswered(); !ok {
		return Result{}, apperr.Validation(op, "не отвечен вопрос %d", first)
	}
	if err := validateHeader(op, s.Role, s.Period); err != nil {
		return Result{}, err
	}

	answers := s.Answers()
	doc := export.Document{
		Role:  s.Role,
		Month: s.Period.Month,
		Year:  s.Period.Year,
		Rows:  make([]export.Row, len(answers)),
	}
	record := &store.Report{
		Role:       s.Role,
		Month:      s.Period.Month,
		Year:       s.Period.Year,
		ReportDate: s.ReportDate,
		Answers:    make([]store.Answer, len(answers)),
	}
	for i, a := range answers {
		doc.Rows[i] = export.Row{Question: a.QuestionText, Decision: a.Decision.String(), Comment: a.Comment}
		record.Answers[i] = store.Answer{
			QuestionText:      a.QuestionText,
			Decision:          a.Decision.String(),
			Comment:           a.Comment,
			StandardReference: a.StandardReference,
			QualityGuidance:   a.QualityGuidance,
			RelatedDocuments:  a.RelatedDocuments,
		}
	}

	log := p.log.With("session_id", s.ID)
	path, err := p.docs.Write(doc)
	if err != nil {
		log.Error("document export failed", "error", err)
		return Result{}, err
	}
	result := Result{FileName: filepath.Base(path), FilePath: path}

	record.FilePath = path
	id, err := p.store.SaveReport(ctx, record)
	if err != nil {
		result.Orphaned = true
		log.Error("report not stored, document left without record", "path", path, "error", err)
		return result, err
	}
	result.ReportID = id
	log.Info("report finalized", "report_id", id, "path", path, "answers", len(answers))
	return result, nil
}

// Reexport renders a fresh document from a stored report. The stored record
// keeps pointing at its original file.
func (p *Persister) Reexport(ctx context.Context, id int64) (Result, error) {
	const op = "report.Reexport"
	if id <= 0 {
		return Result{}, apperr.Validation(op, "некорректный ID отчёта: %d", id)
	}
	stored, err := p.store.GetReport(ctx, id)
	if err != nil {
		return Result{}, err
	}
	doc := export.Document{
		Role:  stored.Role,
		Month: stored.Month,
		Year:  stored.Year,
		Rows:  make([]export.Row, len(stored.Answers)),
	}
	for i, a := range stored.Answers {
		doc.Rows[i] = export.Row{Question: a.QuestionText, Decision: a.Decision, Comment: a.Comment}
	}
	path, err := p.docs.Write(doc)
	if err != nil {
		return Result{}, err
	}
	p.log.Info("report re-exported", "report_id", id, "path", path)
	return Result{FileName: filepath.Base(path), FilePath: path, ReportID: id}, nil
}

func validateHeader(op, role string, period form.Period) error {
	if strings.TrimSpace(export.Sanitize(role)) == "" {
		return apperr.Validation(op, "не указана форма отчёта")
	}
	if strings.TrimSpace(export.Sanitize(period.Month)) == "" {
		return apperr.Validation(op, "не указан месяц")
	}
	if period.Year < 1 || period.Year > 9999 {
		return apperr.Validation(op, "некорректный год: %d", period.Year)
	}
	return nil
}
