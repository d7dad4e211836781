package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/kingrea/reportdesk/internal/apperr"
)

// Load failure causes. They are wrapped in *apperr.Error of KindFormat.
var (
	ErrInvalidFormat = errors.New("неподдерживаемый формат файла, ожидается .xlsx или .xls")
	ErrNoData        = errors.New("файл не содержит данных (нужно минимум 2 строки)")
	ErrNoQuestions   = errors.New("в файле не найдено ни одного валидного вопроса")
)

// questionColumns is how many leading columns map onto Question fields.
const questionColumns = 4

// LoadResult is the outcome of a successful Load.
type LoadResult struct {
	Questions []Question
	// Skipped counts rows that had content but no question text.
	Skipped int
	// Blank counts rows with no content at all.
	Blank int
	// Rows is the sheet row count including the header.
	Rows int
}

// Load reads the questions from a spreadsheet. The first row is a header
// and is never interpreted. Malformed rows are skipped and counted; only an
// unreadable file or a sheet without questions fails the load.
func Load(path string) (LoadResult, error) {
	const op = "form.Load"
	info, err := os.Stat(path)
	if err != nil {
		return LoadResult{}, statError(op, path, err)
	}
	if info.IsDir() {
		return LoadResult{}, apperr.Wrap(apperr.KindFormat, op, ErrInvalidFormat)
	}
	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".xls":
		rows, err = readXLS(path)
	default:
		return LoadResult{}, apperr.Wrap(apperr.KindFormat, op, ErrInvalidFormat)
	}
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return LoadResult{}, apperr.Wrap(apperr.KindAccess, op, err)
		}
		return LoadResult{}, apperr.Wrap(apperr.KindFormat, op, err)
	}
	if len(rows) < 2 {
		return LoadResult{}, apperr.Wrap(apperr.KindFormat, op, ErrNoData)
	}
	result := parseRows(rows)
	if len(result.Questions) == 0 {
		return result, apperr.Wrap(apperr.KindFormat, op, ErrNoQuestions)
	}
	return result, nil
}

func parseRows(rows [][]string) LoadResult {
	result := LoadResult{Rows: len(rows)}
	for _, row := range rows[1:] {
		cells := make([]string, questionColumns)
		for i := 0; i < questionColumns && i < len(row); i++ {
			cells[i] = strings.TrimSpace(row[i])
		}
		if isBlankRow(row) {
			result.Blank++
			continue
		}
		if cells[0] == "" {
			result.Skipped++
			continue
		}
		result.Questions = append(result.Questions, Question{
			Text:              cells[0],
			StandardReference: cells[1],
			QualityGuidance:   cells[2],
			RelatedDocuments:  cells[3],
		})
	}
	return result
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readXLSX(path string) ([][]string, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer book.Close()
	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}
	return book.GetRows(sheet)
}

// readXLS reads the first sheet of a legacy workbook. The decoder panics on
// some damaged containers, so panics are reported as format errors.
func readXLS(path string) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = fmt.Errorf("повреждённый файл .xls: %v", r)
		}
	}()
	book, err := xls.Open(path, "utf-8")
	if err != nil {
		return nil, err
	}
	if book == nil {
		return nil, errors.New("в файле .xls нет книги Excel")
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := xlsRow(sheet, i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		// Cells written without a ROW record report LastCol 0.
		last := row.LastCol()
		if last < questionColumns {
			last = questionColumns
		}
		cells := make([]string, 0, last)
		for c := 0; c < last; c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	for len(rows) > 0 && isBlankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return rows, nil
}

// xlsRow returns row i, or nil when the sheet stores nothing for it. The
// decoder dereferences missing rows.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}

func statError(op, path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperr.NotFound(op, "файл не найден: %s", filepath.Base(path))
	case errors.Is(err, fs.ErrPermission):
		return apperr.Wrap(apperr.KindAccess, op, err)
	default:
		return apperr.Wrap(apperr.KindIO, op, err)
	}
}
