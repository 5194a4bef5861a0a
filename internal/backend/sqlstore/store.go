// Package sqlstore implements store.TaskStore on a SQL database through gorm.
// It is the local alternative to the spreadsheet backend.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todobot/internal/store"
)

// taskRow is one task. IDs are ULIDs, so ordering by id is insertion order.
type taskRow struct {
	ID        string `gorm:"primarykey;size:26"`
	UserID    string `gorm:"not null;index:idx_tasks_user_name"`
	Name      string `gorm:"not null;index:idx_tasks_user_name"`
	Deadline  string `gorm:"not null"`
	CreatedAt time.Time
}

// TableName returns the table name for taskRow.
func (taskRow) TableName() string {
	return "tasks"
}

// Store provides task storage on a gorm database.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) a SQLite database at path and migrates it.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and every ":memory:" connection is its
	// own database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db)
}

// New wraps an open gorm database and migrates the task table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&taskRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrapError(store.OpQuery, err)
	}
	return wrapError(store.OpQuery, sqlDB.PingContext(ctx))
}

// Append implements store.TaskStore.
func (s *Store) Append(ctx context.Context, task store.Task) error {
	row := &taskRow{
		ID:       ulid.Make().String(),
		UserID:   task.UserID,
		Name:     task.Name,
		Deadline: task.Deadline,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return wrapError(store.OpAppend, err)
	}
	return nil
}

// Query implements store.TaskStore. Like the spreadsheet backend it returns
// every row in insertion order.
func (s *Store) Query(ctx context.Context, userID string) ([]store.Task, error) {
	var rows []taskRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrapError(store.OpQuery, err)
	}

	tasks := make([]store.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, store.Task{UserID: r.UserID, Name: r.Name, Deadline: r.Deadline})
	}
	return tasks, nil
}

// DeleteMatching implements store.TaskStore in a single statement.
func (s *Store) DeleteMatching(ctx context.Context, userID, name string) (int, error) {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&taskRow{})
	if err := result.Error; err != nil {
		return 0, wrapError(store.OpDelete, err)
	}
	return int(result.RowsAffected), nil
}

// wrapError converts database errors to store errors.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return store.NewError(op, store.KindTimeout, err)
	case strings.Contains(msg, "no such table"):
		return store.NewError(op, store.KindNotFound, fmt.Errorf("%w: %v", store.ErrTableNotFound, err))
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database is closed"):
		return store.NewError(op, store.KindUnavailable, err)
	default:
		return store.NewError(op, store.KindInternal, err)
	}
}
