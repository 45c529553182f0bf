package model

// ReportWriter defines a generic interface for persisting analysis reports.
type ReportWriter interface {
	// Write persists one report under the given analysis name.
	// The implementation decides how the report is laid out in its store.
	Write(report *Report, name string) error

	// Close releases the underlying connection or file handle.
	Close() error
}
