package logfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/logfmt"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

const defaultChunkSize = 100000

// Source streams normalized records out of a firewall log file in
// bounded-size chunks, so that peak memory is independent of file size.
// It implements model.RecordSource. A Source is not restartable.
type Source struct {
	f      *os.File
	r      *csv.Reader
	parser *logfmt.Parser
	path   string
	chunk  int

	// lead holds the record parsed from the first row when the file turned
	// out to be in key-value mode, where the first row is data.
	lead    []model.Record
	skipped uint64
	done    bool
}

// Open opens a log file and detects its format from the first row. A file
// whose header lacks any of the required columns is rejected here, before
// any rows are consumed. Open fails with *model.IOError when the file
// cannot be read.
func Open(path string, chunkSize int) (*Source, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	s := &Source{f: f, r: r, path: path, chunk: chunkSize}

	first, err := r.Read()
	if err == io.EOF {
		// An empty file is a valid, zero-record stream.
		s.done = true
		return s, nil
	}
	if err != nil {
		f.Close()
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}

	if logfmt.IsKV(first) {
		s.parser = logfmt.NewKV()
		if rec, perr := s.parser.ParseRow(first); perr == nil {
			s.lead = append(s.lead, rec)
		} else {
			s.skipped++
		}
		return s, nil
	}

	parser, err := logfmt.NewColumnar(first)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("unsupported log format in %s: %w", path, err)
	}
	s.parser = parser
	return s, nil
}

// NextBatch reads and parses up to one chunk of rows. Malformed rows are
// skipped and counted, never surfaced as errors. It returns io.EOF once
// the file is exhausted; any other error is a fatal read failure.
func (s *Source) NextBatch() ([]model.Record, error) {
	if s.done {
		return nil, io.EOF
	}

	batch := make([]model.Record, 0, s.chunk)
	if len(s.lead) > 0 {
		batch = append(batch, s.lead...)
		s.lead = nil
	}

	for len(batch) < s.chunk {
		row, err := s.r.Read()
		if err == io.EOF {
			s.done = true
			if len(batch) == 0 {
				return nil, io.EOF
			}
			return batch, nil
		}
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				// A row the CSV layer itself could not split is just
				// another malformed row.
				s.skipped++
				continue
			}
			s.done = true
			return nil, &model.IOError{Op: "read", Path: s.path, Err: err}
		}

		rec, err := s.parser.ParseRow(row)
		if err != nil {
			s.skipped++
			continue
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

// Skipped returns the number of malformed rows dropped so far.
func (s *Source) Skipped() uint64 {
	return s.skipped
}

// Close closes the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}
