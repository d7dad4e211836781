package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/export"
	"github.com/kingrea/reportdesk/internal/form"
	"github.com/kingrea/reportdesk/internal/session"
	"github.com/kingrea/reportdesk/internal/store"
)

type fakeWriter struct {
	docs []export.Document
	path string
	err  error
}

func (f *fakeWriter) Write(doc export.Document) (string, error) {
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}

type fakeStore struct {
	saved   []*store.Report
	reports map[int64]*store.Report
	err     error
}

func (f *fakeStore) SaveReport(_ context.Context, r *store.Report) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, r)
	return int64(len(f.saved)), nil
}

func (f *fakeStore) GetReport(_ context.Context, id int64) (*store.Report, error) {
	if r, ok := f.reports[id]; ok {
		return r, nil
	}
	return nil, apperr.NotFound("fake", "missing %d", id)
}

func answeredSession(t *testing.T) *session.Session {
	t.Helper()
	s := session.New(5)
	s.Init("Инженер", form.Period{Month: "Март", Year: 2024}, "31.03.2024", []form.Question{
		{Text: "Q1", StandardReference: "п. 1"},
		{Text: "Q2"},
	})
	s.SetAnswer(0, form.Yes, "")
	s.SetAnswer(1, form.No, "замечание")
	return s
}

func TestFinalizeWritesDocumentThenRecord(t *testing.T) {
	docs := &fakeWriter{path: "/tmp/отчеты/Инженер_Март_2024_20240331_100000.xlsx"}
	st := &fakeStore{}
	p := NewPersister(docs, st, nil)

	res, err := p.Finalize(context.Background(), answeredSession(t))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.ReportID != 1 || res.FileName != "Инженер_Март_2024_20240331_100000.xlsx" || res.Orphaned {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(docs.docs) != 1 || len(docs.docs[0].Rows) != 2 || docs.docs[0].Rows[1].Decision != "Нет" {
		t.Fatalf("unexpected document %+v", docs.docs)
	}
	saved := st.saved[0]
	if saved.FilePath != docs.path || saved.ReportDate != "31.03.2024" {
		t.Fatalf("unexpected record %+v", saved)
	}
	if saved.Answers[0].Decision != "Да" || saved.Answers[0].StandardReference != "п. 1" || saved.Answers[1].Comment != "замечание" {
		t.Fatalf("answers not copied: %+v", saved.Answers)
	}
}

func TestFinalizeRejectsIncompleteSession(t *testing.T) {
	docs := &fakeWriter{path: "x.xlsx"}
	st := &fakeStore{}
	p := NewPersister(docs, st, nil)

	s := answeredSession(t)
	s.SetAnswer(1, form.Unanswered, "")
	_, err := p.Finalize(context.Background(), s)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(docs.docs) != 0 || len(st.saved) != 0 {
		t.Fatalf("nothing may be written for an incomplete session")
	}

	if _, err := p.Finalize(context.Background(), session.New(5)); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("empty session must fail validation, got %v", err)
	}
}

func TestFinalizeValidatesHeader(t *testing.T) {
	cases := []struct {
		name  string
		role  string
		month string
		year  int
	}{
		{"blank role", "  ", "Март", 2024},
		{"role of separators only", "///", "Март", 2024},
		{"role of separators and spaces", "/ /", "Март", 2024},
		{"blank month", "Инженер", "", 2024},
		{"zero year", "Инженер", "Март", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			docs := &fakeWriter{path: "x.xlsx"}
			p := NewPersister(docs, &fakeStore{}, nil)
			s := session.New(5)
			s.Init(tc.role, form.Period{Month: tc.month, Year: tc.year}, "", []form.Question{{Text: "Q"}})
			s.SetAnswer(0, form.Yes, "")
			if _, err := p.Finalize(context.Background(), s); !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(docs.docs) != 0 {
				t.Fatalf("document written despite invalid header")
			}
		})
	}
}

func TestFinalizeExportFailureStoresNothing(t *testing.T) {
	docs := &fakeWriter{err: apperr.Wrap(apperr.KindIO, "export.Write", os.ErrPermission)}
	st := &fakeStore{}
	p := NewPersister(docs, st, nil)
	_, err := p.Finalize(context.Background(), answeredSession(t))
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
	if len(st.saved) != 0 {
		t.Fatalf("record stored after failed export")
	}
}

func TestFinalizeStoreFailureReportsOrphan(t *testing.T) {
	docs := &fakeWriter{path: "/tmp/orphan.xlsx"}
	st := &fakeStore{err: apperr.Wrap(apperr.KindStorage, "store.SaveReport", errors.New("disk full"))}
	p := NewPersister(docs, st, nil)
	res, err := p.Finalize(context.Background(), answeredSession(t))
	if !errors.Is(err, apperr.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if !res.Orphaned || res.FilePath != "/tmp/orphan.xlsx" {
		t.Fatalf("orphaned document not reported: %+v", res)
	}
}

func TestFinalizeEndToEnd(t *testing.T) {
	work := t.TempDir()
	st := store.New(filepath.Join(work, "reports.db"), nil)
	writer := export.NewWriter(filepath.Join(work, "отчеты"), nil)
	p := NewPersister(writer, st, nil)
	ctx := context.Background()

	res, err := p.Finalize(ctx, answeredSession(t))
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := os.Stat(res.FilePath); err != nil {
		t.Fatalf("document missing: %v", err)
	}
	stored, err := st.GetReport(ctx, res.ReportID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if stored.FilePath != res.FilePath || len(stored.Answers) != 2 {
		t.Fatalf("unexpected stored report %+v", stored)
	}
	if time.Since(stored.CreatedAt) > time.Hour {
		t.Fatalf("created_at not stamped: %v", stored.CreatedAt)
	}
}

func TestReexport(t *testing.T) {
	docs := &fakeWriter{path: "/tmp/again.xlsx"}
	st := &fakeStore{reports: map[int64]*store.Report{
		3: {ID: 3, Role: "Мастер", Month: "Май", Year: 2024, Answers: []store.Answer{{QuestionText: "Q", Decision: "Да"}}},
	}}
	p := NewPersister(docs, st, nil)

	res, err := p.Reexport(context.Background(), 3)
	if err != nil {
		t.Fatalf("Reexport: %v", err)
	}
	if res.ReportID != 3 || res.FileName != "again.xlsx" {
		t.Fatalf("unexpected result %+v", res)
	}
	if docs.docs[0].Role != "Мастер" || docs.docs[0].Rows[0].Decision != "Да" {
		t.Fatalf("unexpected document %+v", docs.docs[0])
	}
	if _, err := p.Reexport(context.Background(), 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := p.Reexport(context.Background(), 0); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
