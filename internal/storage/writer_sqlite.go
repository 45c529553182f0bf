package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    analysis     TEXT,
    generated_at INTEGER,
    records      INTEGER,
    skipped      INTEGER
);
CREATE TABLE IF NOT EXISTS report_rules (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER,
    rank      INTEGER,
    src_cidr  TEXT,
    dst_cidr  TEXT,
    port      INTEGER,
    coverage  REAL,
    hits      INTEGER
);
`

// SQLiteWriter implements the model.ReportWriter interface on a local
// SQLite database, so single-host deployments get persistent history
// without running a ClickHouse cluster.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter opens (or creates) the database file and ensures the
// schema exists.
func NewSQLiteWriter(cfg config.SQLiteConfig) (*SQLiteWriter, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	return &SQLiteWriter{db: db}, nil
}

// Write stores the report summary row and one row per candidate rule in a
// single transaction.
func (w *SQLiteWriter) Write(report *model.Report, name string) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	res, err := tx.Exec(
		`INSERT INTO reports (analysis, generated_at, records, skipped) VALUES (?, ?, ?, ?)`,
		name, report.GeneratedAt.Unix(), report.Records, report.Skipped,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	reportID, err := res.LastInsertId()
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO report_rules (
            report_id, rank,
            src_cidr, dst_cidr,
            port, coverage, hits
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rule := range report.Rules {
		_, err = stmt.Exec(
			reportID, rule.Rank,
			rule.SrcPrefix.CIDR, rule.DstPrefix.CIDR,
			rule.Port, rule.Coverage, rule.Hits,
		)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// Close closes the database handle.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}
