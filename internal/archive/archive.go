// Package archive reads and deletes stored reports on behalf of the
// interactive and command-line front ends.
package archive

import (
	"context"
	"strconv"
	"strings"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/logging"
	"github.com/kingrea/reportdesk/internal/store"
)

// CreatedLayout formats CreatedAt for display.
const CreatedLayout = "02.01.2006 15:04"

// Store is the subset of the report store the archive uses.
type Store interface {
	ListReports(ctx context.Context) ([]store.Report, error)
	GetReport(ctx context.Context, id int64) (*store.Report, error)
	DeleteReport(ctx context.Context, id int64) error
}

// Reader is the archive facade.
type Reader struct {
	store Store
	log   *logging.Logger
}

// NewReader wraps st.
func NewReader(st Store, log *logging.Logger) *Reader {
	if log == nil {
		log = logging.Nop()
	}
	return &Reader{store: st, log: log.With("component", "archive")}
}

// ListAll returns report headers, newest first.
func (r *Reader) ListAll(ctx context.Context) ([]store.Report, error) {
	return r.store.ListReports(ctx)
}

// GetByID returns a report with its answers.
func (r *Reader) GetByID(ctx context.Context, id int64) (*store.Report, error) {
	if id <= 0 {
		return nil, apperr.Validation("archive.GetByID", "некорректный ID отчёта: %d", id)
	}
	return r.store.GetReport(ctx, id)
}

// DeleteByID removes a report and its answers.
func (r *Reader) DeleteByID(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperr.Validation("archive.DeleteByID", "некорректный ID отчёта: %d", id)
	}
	if err := r.store.DeleteReport(ctx, id); err != nil {
		r.log.Warn("delete failed", "report_id", id, "error", err)
		return err
	}
	return nil
}

// ParseID converts user text into a report id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("archive.ParseID", "некорректный ID отчёта: %q", raw)
	}
	return id, nil
}

// Title is the one-line label of a report: "{role} - {month} {year}".
func Title(r store.Report) string {
	return r.Role + " - " + r.Month + " " + strconv.Itoa(r.Year)
}

// CreatedLabel renders r.CreatedAt in local time.
func CreatedLabel(r store.Report) string {
	if r.CreatedAt.IsZero() {
		return ""
	}
	return r.CreatedAt.Local().Format(CreatedLayout)
}
