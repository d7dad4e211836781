// Package logbook keeps journey.log, the operator-facing journal of report
// work. Diagnostics go to the zap log; this file only says what the user did.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Severity tags a journal line.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// FileName is the journal file inside the logs directory.
const FileName = "journey.log"

// stampLayout matches the dates shown elsewhere in the UI.
const stampLayout = "02.01.2006 15:04:05"

// Logbook records what the user did (reports started, saved, deleted,
// sent) as one line per action. The terminal UI shows its tail.
type Logbook struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

// New opens the journal at path, creating the logs directory if needed. The
// file itself appears on the first action.
func New(path string) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Logbook{path: path, now: time.Now}, nil
}

// Path is shown in the journal panel title.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// line renders one journal entry. Line breaks inside message are folded so
// that Tail counts one entry per action.
func (l *Logbook) line(sev Severity, message string) string {
	message = strings.Join(strings.Fields(message), " ")
	return fmt.Sprintf("%s %-5s %s\n", l.now().Format(stampLayout), sev, message)
}

// record appends one action. A journal that cannot be written is skipped
// silently so report work carries on.
func (l *Logbook) record(sev Severity, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	journal, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer journal.Close()
	_, _ = journal.WriteString(l.line(sev, message))
}

// Tail returns the last maxLines actions, oldest first, together with the
// number of actions ever journaled. A missing journal reads as empty.
func (l *Logbook) Tail(maxLines int) ([]string, int) {
	if l == nil || maxLines <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	journal, err := os.Open(l.path)
	if err != nil {
		return nil, 0
	}
	defer journal.Close()

	recent := make([]string, 0, maxLines)
	total := 0
	scanner := bufio.NewScanner(journal)
	for scanner.Scan() {
		total++
		if len(recent) == maxLines {
			recent = append(recent[1:], scanner.Text())
			continue
		}
		recent = append(recent, scanner.Text())
	}
	return recent, total
}

// Info journals a completed action, e.g. a saved or sent report.
func (l *Logbook) Info(format string, args ...any) {
	l.record(SeverityInfo, fmt.Sprintf(format, args...))
}

// Warn journals an action the user abandoned or that needs a second look.
func (l *Logbook) Warn(format string, args ...any) {
	l.record(SeverityWarn, fmt.Sprintf(format, args...))
}

// Error journals an action that failed, with the message shown to the user.
func (l *Logbook) Error(format string, args ...any) {
	l.record(SeverityError, fmt.Sprintf(format, args...))
}
