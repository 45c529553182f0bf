package model

import "fmt"

// Reasons a single input row can be rejected by a parser.
const (
	ReasonMalformed    = "malformed"
	ReasonMissingField = "missing-field"
	ReasonOutOfRange   = "out-of-range"
)

// ParseError reports one unusable input row. Row-level errors are recovered
// locally: the row is skipped and counted, parsing continues with the next row.
type ParseError struct {
	Reason string
	Field  string
	Value  string
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("parse error (%s): field %q value %q", e.Reason, e.Field, e.Value)
	}
	return fmt.Sprintf("parse error (%s): %q", e.Reason, e.Value)
}

// IOError reports a failed open or read on an input source. It is fatal and
// aborts the run, identifying the offending path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConfigError reports an invalid analysis option. It is fatal at run start;
// option values are never silently clamped.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid option %q: %s", e.Option, e.Reason)
}
