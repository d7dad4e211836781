package form

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kingrea/reportdesk/internal/apperr"
)

// writeSheet stores rows keyed by 1-based row number so gaps stay blank.
func writeSheet(t *testing.T, path string, rows map[int][]any) {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(book.GetActiveSheetIndex())
	for num, values := range rows {
		cells := values
		if err := book.SetSheetRow(sheet, fmt.Sprintf("A%d", num), &cells); err != nil {
			t.Fatalf("set row %d: %v", num, err)
		}
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func header() []any {
	return []any{"Вопрос", "ГОСТ", "Качество", "Документы"}
}

func TestLoadMapsColumnsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Инженер.xlsx")
	writeSheet(t, path, map[int][]any{
		1: header(),
		2: {"  Проверены журналы?  ", "ГОСТ 1.1", "Журналы заполнены", "Журнал №1"},
		3: {"Есть акты?"},
		4: {"Обучение проведено?", "", "Протоколы"},
	})
	result, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(result.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(result.Questions))
	}
	first := result.Questions[0]
	if first.Text != "Проверены журналы?" || first.StandardReference != "ГОСТ 1.1" ||
		first.QualityGuidance != "Журналы заполнены" || first.RelatedDocuments != "Журнал №1" {
		t.Fatalf("unexpected first question %+v", first)
	}
	if second := result.Questions[1]; second.Text != "Есть акты?" || second.StandardReference != "" || second.RelatedDocuments != "" {
		t.Fatalf("optional columns must default to empty: %+v", second)
	}
	if third := result.Questions[2]; third.QualityGuidance != "Протоколы" {
		t.Fatalf("unexpected third question %+v", third)
	}
	if result.Skipped != 0 || result.Blank != 0 {
		t.Fatalf("unexpected counters %+v", result)
	}
}

func TestLoadSkipsAndCountsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Инженер.xlsx")
	writeSheet(t, path, map[int][]any{
		1: header(),
		2: {"Вопрос 1"},
		// row 3 fully blank
		4: {"", "ГОСТ без вопроса"},
		5: {"Вопрос 2"},
		6: {"   ", "", "только качество"},
		7: {"Вопрос 3"},
	})
	result, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(result.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(result.Questions))
	}
	if result.Skipped != 2 {
		t.Fatalf("skipped = %d, want 2", result.Skipped)
	}
	if result.Blank != 1 {
		t.Fatalf("blank = %d, want 1", result.Blank)
	}
	if got := len(result.Questions) + result.Skipped + result.Blank; got != result.Rows-1 {
		t.Fatalf("row accounting %d != %d", got, result.Rows-1)
	}
	for i, want := range []string{"Вопрос 1", "Вопрос 2", "Вопрос 3"} {
		if result.Questions[i].Text != want {
			t.Fatalf("question %d = %q, want %q", i, result.Questions[i].Text, want)
		}
	}
}

func TestLoadXLS(t *testing.T) {
	result, err := Load(filepath.Join("testdata", "Инженер.xls"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []Question{
		{Text: "Проведён ли инструктаж?", StandardReference: "п. 7.2", QualityGuidance: "Раздел 4", RelatedDocuments: "Журнал инструктажа"},
		{Text: "Заполнен ли журнал?", StandardReference: "п. 8.5"},
		{Text: "Есть ли подпись?"},
	}
	if len(result.Questions) != len(want) {
		t.Fatalf("questions = %+v, want %d", result.Questions, len(want))
	}
	for i := range want {
		if result.Questions[i] != want[i] {
			t.Fatalf("question %d = %+v, want %+v", i, result.Questions[i], want[i])
		}
	}
	// the empty trailing row is dropped, so the sheet spans rows 1..6
	if result.Rows != 6 || result.Skipped != 1 || result.Blank != 1 {
		t.Fatalf("unexpected counters %+v", result)
	}
	if got := len(result.Questions) + result.Skipped + result.Blank; got != result.Rows-1 {
		t.Fatalf("row accounting %d != %d", got, result.Rows-1)
	}
}

func TestLoadHeaderIsNeverData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Инженер.xlsx")
	writeSheet(t, path, map[int][]any{
		1: {"Похоже на вопрос?"},
		2: {"Настоящий вопрос"},
	})
	result, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(result.Questions) != 1 || result.Questions[0].Text != "Настоящий вопрос" {
		t.Fatalf("header leaked into questions: %+v", result.Questions)
	}
}

func TestLoadFailures(t *testing.T) {
	dir := t.TempDir()

	headerOnly := filepath.Join(dir, "header.xlsx")
	writeSheet(t, headerOnly, map[int][]any{1: header()})

	noQuestions := filepath.Join(dir, "empty-questions.xlsx")
	writeSheet(t, noQuestions, map[int][]any{1: header(), 2: {"", "ГОСТ"}})

	corrupt := filepath.Join(dir, "broken.xlsx")
	if err := os.WriteFile(corrupt, []byte("not a zip container"), 0o644); err != nil {
		t.Fatal(err)
	}
	corruptXLS := filepath.Join(dir, "broken.xls")
	if err := os.WriteFile(corruptXLS, []byte("not an OLE2 container at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	emptyXLS := filepath.Join(dir, "empty.xls")
	if err := os.WriteFile(emptyXLS, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	text := filepath.Join(dir, "questions.csv")
	if err := os.WriteFile(text, []byte("a,b"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		path  string
		kind  error
		cause error
	}{
		{"missing", filepath.Join(dir, "missing.xlsx"), apperr.ErrNotFound, nil},
		{"extension", text, apperr.ErrFormat, ErrInvalidFormat},
		{"header only", headerOnly, apperr.ErrFormat, ErrNoData},
		{"no questions", noQuestions, apperr.ErrFormat, ErrNoQuestions},
		{"corrupt", corrupt, apperr.ErrFormat, nil},
		{"corrupt xls", corruptXLS, apperr.ErrFormat, nil},
		{"empty xls", emptyXLS, apperr.ErrFormat, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.path)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if tc.cause != nil && !errors.Is(err, tc.cause) {
				t.Fatalf("expected cause %v, got %v", tc.cause, err)
			}
		})
	}
}

func TestLoadDoesNotModifySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Инженер.xlsx")
	writeSheet(t, path, map[int][]any{1: header(), 2: {"Вопрос"}})
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Fatalf("source file changed during load")
	}
}
