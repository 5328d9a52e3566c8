// Package history records CLI runs in a local SQLite database so past
// invocations can be inspected and reproduced.
package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one recorded CLI invocation.
type Run struct {
	ID uint `gorm:"primaryKey;autoIncrement"`

	Command string `gorm:"type:varchar(20);not null;index"`
	File    string `gorm:"type:varchar(255)"`

	// SHA256 of the input, for reproducibility checks.
	Digest string `gorm:"type:varchar(64)"`

	Status string `gorm:"type:varchar(10);not null"` // ok | error
	Error  string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName implements the GORM naming hook.
func (Run) TableName() string { return "runs" }

// Store wraps the run log database.
type Store struct {
	db *gorm.DB
}

// Open connects to the database at path (":memory:" for tests), creating
// the directory and running migrations.
func Open(path string, debug bool) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(sqlite.Open(path), config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

// Record appends a run.
func (s *Store) Record(run *Run) error {
	return s.db.Create(run).Error
}

// Recent returns the newest runs, most recent first.
func (s *Store) Recent(limit int) ([]Run, error) {
	var runs []Run
	err := s.db.Order("id DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// Prune keeps only the newest keep runs.
func (s *Store) Prune(keep int) error {
	var cutoff Run
	err := s.db.Order("id DESC").Offset(keep).Limit(1).Take(&cutoff).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return s.db.Where("id <= ?", cutoff.ID).Delete(&Run{}).Error
}
