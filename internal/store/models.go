package store

import "time"

// Report is a persisted questionnaire header. Answers are loaded only by
// GetReport; ListReports leaves them empty.
type Report struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Role       string    `gorm:"column:role"`
	Month      string    `gorm:"column:month"`
	Year       int       `gorm:"column:year"`
	ReportDate string    `gorm:"column:report_date"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	FilePath   string    `gorm:"column:file_path"`
	Answers    []Answer  `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

func (Report) TableName() string { return "reports" }

// Answer is one stored answer row. Rows of a report keep insertion order.
type Answer struct {
	ID                int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ReportID          int64  `gorm:"column:report_id;index"`
	QuestionText      string `gorm:"column:question_text"`
	Decision          string `gorm:"column:decision"`
	Comment           string `gorm:"column:comment"`
	StandardReference string `gorm:"column:standard_reference"`
	QualityGuidance   string `gorm:"column:quality_guidance"`
	RelatedDocuments  string `gorm:"column:related_documents"`
}

func (Answer) TableName() string { return "answers" }

// schema is applied on every connection; statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		month TEXT NOT NULL,
		year INTEGER NOT NULL,
		report_date TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		file_path TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS answers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		question_text TEXT NOT NULL,
		decision TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		standard_reference TEXT NOT NULL DEFAULT '',
		quality_guidance TEXT NOT NULL DEFAULT '',
		related_documents TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_answers_report_id ON answers(report_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
}
