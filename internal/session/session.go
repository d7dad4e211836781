// Package session holds the questionnaire being filled in: the loaded
// questions, one answer slot per question, and the block cursor.
//
// Navigation is strictly one block forward or back, so the cursor is a
// single index; block bounds are always derived from it and the question
// count.
package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kingrea/reportdesk/internal/form"
)

// DefaultPageSize is the number of questions shown per block.
const DefaultPageSize = 5

// Session is the single in-progress questionnaire. Starting a new one via
// Init discards the previous answers without saving them.
type Session struct {
	ID         string
	Role       string
	Period     form.Period
	ReportDate string

	questions []form.Question
	answers   []form.Answer
	cursor    int
	pageSize  int
}

// New creates an empty session. A non-positive pageSize selects the default.
func New(pageSize int) *Session {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Session{pageSize: pageSize}
}

// Init starts a questionnaire over questions with every answer unset.
func (s *Session) Init(role string, period form.Period, reportDate string, questions []form.Question) {
	s.ID = uuid.NewString()
	s.Role = strings.TrimSpace(role)
	s.Period = form.Period{Month: strings.TrimSpace(period.Month), Year: period.Year}
	s.ReportDate = strings.TrimSpace(reportDate)
	s.questions = make([]form.Question, len(questions))
	copy(s.questions, questions)
	s.answers = make([]form.Answer, len(questions))
	for i, q := range s.questions {
		s.answers[i] = form.NewAnswer(q)
	}
	s.cursor = 0
}

// Len returns the number of questions.
func (s *Session) Len() int { return len(s.questions) }

// PageSize returns the block size.
func (s *Session) PageSize() int { return s.pageSize }

// Cursor returns the index of the first question in the current block.
func (s *Session) Cursor() int { return s.cursor }

// CurrentBlock returns the half-open index range of the current block.
func (s *Session) CurrentBlock() (start, end int) {
	start = s.cursor
	end = s.cursor + s.pageSize
	if end > len(s.questions) {
		end = len(s.questions)
	}
	return start, end
}

// BlockNumber returns the 1-based number of the current block.
func (s *Session) BlockNumber() int {
	return s.cursor/s.pageSize + 1
}

// BlockCount returns how many blocks the questionnaire spans.
func (s *Session) BlockCount() int {
	if len(s.questions) == 0 {
		return 0
	}
	return (len(s.questions) + s.pageSize - 1) / s.pageSize
}

// IsLastBlock reports whether Advance would refuse to move.
func (s *Session) IsLastBlock() bool {
	return s.cursor+s.pageSize >= len(s.questions)
}

// Advance moves to the next block. It returns false on the final block,
// leaving the cursor where it is.
func (s *Session) Advance() bool {
	if s.IsLastBlock() {
		return false
	}
	s.cursor += s.pageSize
	return true
}

// Retreat moves to the previous block, stopping at the first one.
func (s *Session) Retreat() {
	s.cursor -= s.pageSize
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// SetAnswer records decision and comment for question i. Both fields are
// always replaced. It returns false when i is out of range.
func (s *Session) SetAnswer(i int, decision form.Decision, comment string) bool {
	if i < 0 || i >= len(s.answers) {
		return false
	}
	s.answers[i].Decision = decision
	s.answers[i].Comment = comment
	return true
}

// Question returns question i.
func (s *Session) Question(i int) (form.Question, bool) {
	if i < 0 || i >= len(s.questions) {
		return form.Question{}, false
	}
	return s.questions[i], true
}

// Answer returns the answer slot for question i.
func (s *Session) Answer(i int) (form.Answer, bool) {
	if i < 0 || i >= len(s.answers) {
		return form.Answer{}, false
	}
	return s.answers[i], true
}

// Answers returns a copy of the answers in question order.
func (s *Session) Answers() []form.Answer {
	out := make([]form.Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

// Questions returns a copy of the questions.
func (s *Session) Questions() []form.Question {
	out := make([]form.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// AllAnswered reports whether every question has a decision. When not, the
// second result is the 1-based position of the first unanswered question;
// it is 0 when everything is answered.
func (s *Session) AllAnswered() (bool, int) {
	if pos := s.FirstUnansweredIn(0, len(s.answers)); pos > 0 {
		return false, pos
	}
	return true, 0
}

// FirstUnansweredIn returns the 1-based position of the first unanswered
// question in [start, end), or 0.
func (s *Session) FirstUnansweredIn(start, end int) int {
	if start < 0 {
		start = 0
	}
	if end > len(s.answers) {
		end = len(s.answers)
	}
	for i := start; i < end; i++ {
		if s.answers[i].Decision == form.Unanswered {
			return i + 1
		}
	}
	return 0
}

// Progress returns how many questions have a decision.
func (s *Session) Progress() (answered, total int) {
	for _, a := range s.answers {
		if a.Decision != form.Unanswered {
			answered++
		}
	}
	return answered, len(s.answers)
}
