// Package export renders a completed questionnaire as a printable .xlsx
// document.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/logging"
)

const (
	sheetName     = "Отчет"
	signatureLine = "Подпись: _________________________"
	datePrefix    = "Дата создания отчета: "
	paperA4       = 9
)

// Row is one answered question as it appears in the document.
type Row struct {
	Question string
	Decision string
	Comment  string
}

// Document is everything needed to render a report.
type Document struct {
	Role  string
	Month string
	Year  int
	Rows  []Row
}

// Title returns the sanitized "{role}_{month}_{year}" heading, which is also
// the file name stem.
func (d Document) Title() string {
	return Sanitize(d.Role) + "_" + Sanitize(d.Month) + "_" + strconv.Itoa(d.Year)
}

// Writer writes documents into a single output directory.
type Writer struct {
	dir string
	now func() time.Time
	log *logging.Logger
}

// NewWriter returns a Writer targeting dir, usually <workdir>/отчеты.
func NewWriter(dir string, log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Nop()
	}
	return &Writer{dir: dir, now: time.Now, log: log.With("component", "export")}
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// FileName builds "{title}_{YYYYMMDD_HHMMSS}.xlsx".
func FileName(doc Document, ts time.Time) string {
	return doc.Title() + "_" + ts.Format("20060102_150405") + ".xlsx"
}

// Write renders doc and returns the absolute path of the new file. Existing
// files are never overwritten.
func (w *Writer) Write(doc Document) (string, error) {
	const op = "export.Write"
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", ioError(op, err)
	}
	now := w.now()
	path, err := w.freePath(FileName(doc, now))
	if err != nil {
		return "", ioError(op, err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := render(f, doc, now); err != nil {
		return "", apperr.Wrap(apperr.KindIO, op, err)
	}
	if err := f.SaveAs(path); err != nil {
		w.log.Error("save document failed", "path", path, "error", err)
		return "", ioError(op, err)
	}
	w.log.Info("document written", "path", path, "rows", len(doc.Rows))
	return path, nil
}

func (w *Writer) freePath(name string) (string, error) {
	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(name, ".xlsx")
	candidate := filepath.Join(abs, name)
	for n := 2; ; n++ {
		_, err := os.Stat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = filepath.Join(abs, fmt.Sprintf("%s_%d.xlsx", stem, n))
	}
}

type styles struct {
	title, question, answer, comment, footer int
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	defs := []*excelize.Style{
		{
			Font:      &excelize.Font{Family: "Arial", Size: 14, Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		},
		{
			Font:      &excelize.Font{Family: "Arial", Size: 11, Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
			Border:    border,
		},
		{
			Font:      &excelize.Font{Family: "Arial", Size: 12, Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		},
		{
			Font:      &excelize.Font{Family: "Arial", Size: 10, Italic: true},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true},
			Border:    border,
		},
		{
			Font:      &excelize.Font{Family: "Arial", Size: 11},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		},
	}
	ids := make([]int, len(defs))
	for i, def := range defs {
		id, err := f.NewStyle(def)
		if err != nil {
			return styles{}, err
		}
		ids[i] = id
	}
	return styles{title: ids[0], question: ids[1], answer: ids[2], comment: ids[3], footer: ids[4]}, nil
}

func render(f *excelize.File, doc Document, now time.Time) error {
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "A", "A", 65); err != nil {
		return err
	}
	if err := f.SetColWidth(sheetName, "B", "B", 10); err != nil {
		return err
	}

	if err := mergedLine(f, 1, doc.Title(), st.title); err != nil {
		return err
	}

	row := 3
	for _, r := range doc.Rows {
		a, b := cell("A", row), cell("B", row)
		if err := f.SetCellValue(sheetName, a, strings.TrimSpace(r.Question)); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, a, a, st.question); err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, b, strings.TrimSpace(r.Decision)); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, b, b, st.answer); err != nil {
			return err
		}
		row++

		if comment := strings.TrimSpace(r.Comment); comment != "" {
			if err := mergedLine(f, row, comment, st.comment); err != nil {
				return err
			}
			row++
		}
	}

	row++
	if err := mergedLine(f, row, datePrefix+now.Format("02.01.2006"), st.footer); err != nil {
		return err
	}
	row += 2
	if err := mergedLine(f, row, signatureLine, st.footer); err != nil {
		return err
	}
	return pageSetup(f)
}

func mergedLine(f *excelize.File, row int, value string, style int) error {
	a, b := cell("A", row), cell("B", row)
	if err := f.MergeCell(sheetName, a, b); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, a, value); err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, a, b, style)
}

func pageSetup(f *excelize.File) error {
	size := paperA4
	if err := f.SetPageLayout(sheetName, &excelize.PageLayoutOptions{Size: &size}); err != nil {
		return err
	}
	side, edge := 0.2, 0.75
	centered := true
	return f.SetPageMargins(sheetName, &excelize.PageLayoutMarginsOptions{
		Left:         &side,
		Right:        &side,
		Top:          &edge,
		Bottom:       &edge,
		Horizontally: &centered,
	})
}

func cell(col string, row int) string {
	return col + strconv.Itoa(row)
}

func ioError(op string, err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return apperr.Wrap(apperr.KindAccess, op, err)
	}
	return apperr.Wrap(apperr.KindIO, op, err)
}
