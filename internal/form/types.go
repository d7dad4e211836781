// Package form describes questionnaire sources: which spreadsheet holds the
// questions for a role and period, and how its rows become questions.
package form

import "strings"

// Question is one row of a question source. It is never mutated after Load.
type Question struct {
	Text              string
	StandardReference string
	QualityGuidance   string
	RelatedDocuments  string
}

// Decision is the answer given to a question.
type Decision int

const (
	Unanswered Decision = iota
	Yes
	No
)

// Canonical decision text. This is what the database, exported documents
// and notifications carry.
const (
	DecisionYesText = "Да"
	DecisionNoText  = "Нет"
)

// String returns the canonical text, "" for Unanswered.
func (d Decision) String() string {
	switch d {
	case Yes:
		return DecisionYesText
	case No:
		return DecisionNoText
	default:
		return ""
	}
}

// ParseDecision maps stored text back to a Decision. Unknown text is
// Unanswered.
func ParseDecision(text string) Decision {
	switch strings.TrimSpace(text) {
	case DecisionYesText:
		return Yes
	case DecisionNoText:
		return No
	default:
		return Unanswered
	}
}

// Answer is the mutable answer slot for one question. Reference fields are
// copied from the question so a stored report is self-contained.
type Answer struct {
	QuestionText      string
	Decision          Decision
	Comment           string
	StandardReference string
	QualityGuidance   string
	RelatedDocuments  string
}

// NewAnswer creates an unanswered slot for q.
func NewAnswer(q Question) Answer {
	return Answer{
		QuestionText:      q.Text,
		StandardReference: q.StandardReference,
		QualityGuidance:   q.QualityGuidance,
		RelatedDocuments:  q.RelatedDocuments,
	}
}
