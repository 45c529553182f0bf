package storage

import (
	"context"
	"fmt"
	"log"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS rule_suggestions (
    Timestamp    DateTime,
    AnalysisName String,
    Rank         UInt16,
    SrcCIDR      String,
    DstCIDR      String,
    Port         Nullable(UInt16),
    Coverage     Float64,
    Hits         UInt64,
    Records      UInt64,
    Skipped      UInt64
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(Timestamp)
ORDER BY (AnalysisName, Timestamp);
`

// ClickHouseWriter implements the model.ReportWriter interface for ClickHouse.
type ClickHouseWriter struct {
	conn driver.Conn
}

// NewClickHouseWriter connects to ClickHouse and ensures the suggestions
// table exists.
func NewClickHouseWriter(cfg config.ClickHouseConfig) (*ClickHouseWriter, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	if err := conn.Exec(context.Background(), createTableStatement); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	log.Println("Successfully connected to ClickHouse and ensured table exists.")

	return &ClickHouseWriter{conn: conn}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: false,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return conn, nil
}

// Write inserts the report's candidate rules into the rule_suggestions table.
func (w *ClickHouseWriter) Write(report *model.Report, name string) error {
	if len(report.Rules) == 0 {
		return nil // Nothing to write
	}

	batch, err := w.conn.PrepareBatch(context.Background(), "INSERT INTO rule_suggestions")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rule := range report.Rules {
		err = batch.Append(
			report.GeneratedAt,
			name,
			uint16(rule.Rank),
			rule.SrcPrefix.CIDR,
			rule.DstPrefix.CIDR,
			nullablePort(rule.Port),
			rule.Coverage,
			rule.Hits,
			report.Records,
			report.Skipped,
		)
		if err != nil {
			return fmt.Errorf("failed to append rule to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	log.Printf("Wrote %d candidate rules to ClickHouse for analysis '%s'", len(report.Rules), name)
	return nil
}

// Close closes the ClickHouse connection.
func (w *ClickHouseWriter) Close() error {
	return w.conn.Close()
}

// nullablePort maps a port-agnostic rule to a ClickHouse NULL.
func nullablePort(port int) interface{} {
	if port < 0 {
		return nil
	}
	return uint16(port)
}
