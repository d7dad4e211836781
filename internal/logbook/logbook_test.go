package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	book, err := New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Info("entry-%d", i)
	}
	lines, total := book.Tail(3)
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"entry-2", "entry-3", "entry-4"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestAppendFlattensMultilineMessages(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "logs", FileName))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.now = func() time.Time { return time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC) }
	book.Error("Ошибка при сохранении:\n%s", "база заблокирована")
	lines, total := book.Tail(10)
	if total != 1 {
		t.Fatalf("multi-line message must stay one entry, got %d", total)
	}
	want := "31.03.2024 10:00:00 ERROR Ошибка при сохранении: база заблокирована"
	if lines[0] != want {
		t.Fatalf("line = %q, want %q", lines[0], want)
	}
}

func TestSeverityTagsEachAction(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	book.Info("saved")
	book.Warn("cancelled")
	book.Error("failed")
	lines, total := book.Tail(3)
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	for idx, want := range []string{" INFO  saved", " WARN  cancelled", " ERROR failed"} {
		if !strings.HasSuffix(lines[idx], want) {
			t.Fatalf("line %d = %q, want suffix %q", idx, lines[idx], want)
		}
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Info("ignored")
	if lines, total := book.Tail(3); lines != nil || total != 0 {
		t.Fatalf("nil logbook tail = %v, %d", lines, total)
	}
}
