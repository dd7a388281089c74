// Package audit provides the optional, write-only GORM-backed audit trail
//: every ingress and emitted-signal trace line is
// appended as a row, never read back by the engine itself, so an operator
// can later query the backing sqlite or mysql database directly.
package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one appended audit row.
type Entry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	OccurredAt time.Time `gorm:"index"`
	Kind      string    `gorm:"size:16;index"` // "ingress" or "emit"
	Signal    string    `gorm:"size:128;index"`
	SignalID  uint32
	Value     string `gorm:"size:256"`
}

// Trail wraps a GORM connection and appends Entry rows; it never issues a
// read query of its own.
type Trail struct {
	db *gorm.DB
}

// Open connects to the audit database named by driver ("sqlite" or "mysql")
// and dsn, migrating the Entry table if needed.
func Open(driver, dsn string) (*Trail, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("audit: unsupported driver %q (use sqlite or mysql)", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("audit: connect %s: %w", driver, err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return &Trail{db: db}, nil
}

// RecordIngress appends an ingress row.
func (t *Trail) RecordIngress(signal string, id uint32, value string) error {
	return t.append("ingress", signal, id, value)
}

// RecordEmit appends an emitted-signal row.
func (t *Trail) RecordEmit(signal string, id uint32, value string) error {
	return t.append("emit", signal, id, value)
}

func (t *Trail) append(kind, signal string, id uint32, value string) error {
	entry := Entry{
		OccurredAt: time.Now(),
		Kind:       kind,
		Signal:     signal,
		SignalID:   id,
		Value:      value,
	}
	if err := t.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit: append %s row for %q: %w", kind, signal, err)
	}
	return nil
}

// Close releases the underlying database connection.
func (t *Trail) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return fmt.Errorf("audit: close: %w", err)
	}
	return sqlDB.Close()
}

// Observe implements trace.Observer: every "name,id,value" line (ingress,
// emitted and end-of-run recap lines alike) is appended as an "ingress"
// row; emitted lines are not told apart from ingress. Every other trace
// line (state dumps, condition lines) is silently ignored.
func (t *Trail) Observe(line string) {
	name, id, value, ok := parseSignalLine(line)
	if !ok {
		return
	}
	t.RecordIngress(name, id, value)
}

// parseSignalLine splits a "name,id,value" trace line into its parts. Both
// ingress and emitted lines share this shape; callers that need to tell them
// apart must do so by other means (e.g. the recap already has a repeat
// each run, which Observe does not attempt to filter).
func parseSignalLine(line string) (name string, id uint32, value string, ok bool) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return "", 0, "", false
	}
	n, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return "", 0, "", false
	}
	return parts[0], uint32(n), parts[2], true
}
