// Package store persists reports and their answers in a local SQLite file.
// Each operation opens its own connection and closes it before returning.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/kingrea/reportdesk/internal/apperr"
	"github.com/kingrea/reportdesk/internal/logging"
)

const busyTimeout = 10 * time.Second

// Store is the report repository.
type Store struct {
	path string
	log  *logging.Logger
	now  func() time.Time
}

// New returns a Store backed by the SQLite file at path. The file is
// created on first use.
func New(path string, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		path: path,
		log:  log.With("repo", "ReportStore"),
		now:  time.Now,
	}
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Init creates the schema and verifies the file.
func (s *Store) Init(ctx context.Context) error {
	_, closeDB, err := s.open(ctx, "store.Init")
	if err != nil {
		return err
	}
	defer closeDB()
	s.log.Info("database ready", "path", s.path)
	return nil
}

// SaveReport inserts the header and every answer in one transaction and
// returns the new report id. CreatedAt is stamped when zero and stored in
// UTC so ordering by the column is chronological.
func (s *Store) SaveReport(ctx context.Context, report *Report) (int64, error) {
	const op = "store.SaveReport"
	if report == nil {
		return 0, apperr.Validation(op, "отчёт не передан")
	}
	db, closeDB, err := s.open(ctx, op)
	if err != nil {
		return 0, err
	}
	defer closeDB()

	if report.CreatedAt.IsZero() {
		report.CreatedAt = s.now()
	}
	report.CreatedAt = report.CreatedAt.UTC()
	report.ID = 0
	for i := range report.Answers {
		report.Answers[i].ID = 0
		report.Answers[i].ReportID = 0
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(report).Error
	})
	if err != nil {
		s.log.Error("save report failed", "role", report.Role, "error", err)
		return 0, classify(op, err)
	}
	s.log.Info("report saved", "report_id", report.ID, "answers", len(report.Answers))
	return report.ID, nil
}

// ListReports returns report headers, most recently created first.
func (s *Store) ListReports(ctx context.Context) ([]Report, error) {
	const op = "store.ListReports"
	db, closeDB, err := s.open(ctx, op)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	var out []Report
	if err := db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, classify(op, err)
	}
	return out, nil
}

// GetReport loads a report with its answers in insertion order.
func (s *Store) GetReport(ctx context.Context, id int64) (*Report, error) {
	const op = "store.GetReport"
	db, closeDB, err := s.open(ctx, op)
	if err != nil {
		return nil, err
	}
	defer closeDB()

	var report Report
	err = db.WithContext(ctx).
		Preload("Answers", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(op, "отчёт с ID %d не найден", id)
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return &report, nil
}

// DeleteReport removes a report; its answers go with it via the foreign
// key cascade.
func (s *Store) DeleteReport(ctx context.Context, id int64) error {
	const op = "store.DeleteReport"
	db, closeDB, err := s.open(ctx, op)
	if err != nil {
		return err
	}
	defer closeDB()

	var affected int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&Report{}, id)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return classify(op, err)
	}
	if affected == 0 {
		return apperr.NotFound(op, "отчёт с ID %d не найден", id)
	}
	s.log.Info("report deleted", "report_id", id)
	return nil
}

// Backup writes a compacted copy of the database into dir and returns the
// copy's path.
func (s *Store) Backup(ctx context.Context, dir string) (string, error) {
	const op = "store.Backup"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrap(apperr.KindIO, op, err)
	}
	target := filepath.Join(dir, fmt.Sprintf("reports_%s.db", s.now().Format("20060102_150405")))
	if _, err := os.Stat(target); err == nil {
		return "", apperr.Validation(op, "резервная копия %s уже существует", filepath.Base(target))
	}

	db, closeDB, err := s.open(ctx, op)
	if err != nil {
		return "", err
	}
	defer closeDB()

	quoted := strings.ReplaceAll(target, "'", "''")
	if err := db.WithContext(ctx).Exec("VACUUM INTO '" + quoted + "'").Error; err != nil {
		return "", classify(op, err)
	}
	s.log.Info("database backed up", "target", target)
	return target, nil
}

func (s *Store) open(ctx context.Context, op string) (*gorm.DB, func(), error) {
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, apperr.Wrap(apperr.KindAccess, op, err)
		}
	}
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=%d", s.path, busyTimeout.Milliseconds())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, nil, classify(op, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, classify(op, err)
	}
	sqlDB.SetMaxOpenConns(1)
	closeDB := func() {
		if err := sqlDB.Close(); err != nil {
			s.log.Warn("close database", "error", err)
		}
	}

	if err := s.prepare(ctx, db); err != nil {
		closeDB()
		return nil, nil, classify(op, err)
	}
	return db, closeDB, nil
}

func (s *Store) prepare(ctx context.Context, db *gorm.DB) error {
	conn := db.WithContext(ctx)
	if err := conn.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return err
	}
	var status string
	if err := conn.Raw("PRAGMA integrity_check").Row().Scan(&status); err != nil {
		return err
	}
	if status != "ok" {
		return fmt.Errorf("integrity check failed: %s", status)
	}
	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// classify maps driver errors onto the shared taxonomy: a locked or
// read-only database is an access problem, everything else is storage.
func classify(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrCantOpen:
			return apperr.Wrap(apperr.KindAccess, op, err)
		}
	}
	if errors.Is(err, os.ErrPermission) {
		return apperr.Wrap(apperr.KindAccess, op, err)
	}
	return apperr.Wrap(apperr.KindStorage, op, err)
}
