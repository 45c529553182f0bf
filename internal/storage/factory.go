package storage

import (
	"log"

	"github.com/scottsmith200544/Firewall-Analysis/internal/config"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// NewWriters creates all enabled report writers from the config. A writer
// that cannot be created is logged and skipped so one unreachable backend
// does not take down the run.
func NewWriters(defs []config.WriterDef) []model.ReportWriter {
	writers := make([]model.ReportWriter, 0, len(defs))
	for _, def := range defs {
		if !def.Enabled {
			continue
		}

		var writer model.ReportWriter
		var err error
		switch def.Type {
		case "file":
			writer = NewFileWriter(def.File.RootPath)
		case "sqlite":
			writer, err = NewSQLiteWriter(def.SQLite)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", def.Type, err)
				continue
			}
		case "clickhouse":
			writer, err = NewClickHouseWriter(def.ClickHouse)
			if err != nil {
				log.Printf("Warning: failed to create writer type '%s': %v, skipping.", def.Type, err)
				continue
			}
		default:
			log.Printf("Warning: unknown writer type '%s' in config, skipping.", def.Type)
			continue
		}
		writers = append(writers, writer)
	}
	return writers
}

// CloseAll closes every writer, keeping the first error.
func CloseAll(writers []model.ReportWriter) error {
	var first error
	for _, w := range writers {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
