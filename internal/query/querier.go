package query

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// Querier defines the interface for reading persisted rule history.
type Querier interface {
	LatestRules(ctx context.Context, analysis string) ([]model.CandidateRule, error)
	Close() error
}

// sqliteQuerier implements the Querier interface on the history database
// written by the storage layer.
type sqliteQuerier struct {
	db *sql.DB
}

// NewSQLiteQuerier opens the history database for reading.
func NewSQLiteQuerier(cfg config.SQLiteConfig) (Querier, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return &sqliteQuerier{db: db}, nil
}

// LatestRules returns the rules of the most recent report stored for the
// given analysis name, rank order preserved. A name with no stored reports
// yields an empty slice, not an error.
func (q *sqliteQuerier) LatestRules(ctx context.Context, analysis string) ([]model.CandidateRule, error) {
	rows, err := q.db.QueryContext(ctx, `
        SELECT r.rank, r.src_cidr, r.dst_cidr, r.port, r.coverage, r.hits
        FROM report_rules r
        JOIN reports p ON p.id = r.report_id
        WHERE p.analysis = ?
          AND p.id = (SELECT MAX(id) FROM reports WHERE analysis = ?)
        ORDER BY r.rank
    `, analysis, analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var out []model.CandidateRule
	for rows.Next() {
		var r model.CandidateRule
		if err := rows.Scan(&r.Rank, &r.SrcPrefix.CIDR, &r.DstPrefix.CIDR, &r.Port, &r.Coverage, &r.Hits); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database handle.
func (q *sqliteQuerier) Close() error {
	return q.db.Close()
}
