package pcapfile

import (
	"io"
	"os"

	"github.com/google/gopacket/pcapgo"

	"github.com/scottsmith200544/Firewall-Analysis/internal/engine/protocol"
	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

const defaultChunkSize = 100000

// Source streams normalized records out of a pcap capture file, so traffic
// captures can be analyzed with the same pipeline as exported log files.
// Packets without an IPv4 TCP or UDP tuple are counted as skipped rows.
// It implements model.RecordSource.
type Source struct {
	f       *os.File
	r       *pcapgo.Reader
	path    string
	chunk   int
	skipped uint64
	done    bool
}

// Open opens a capture file. It fails with *model.IOError when the file
// cannot be read or does not start with a valid pcap header.
func Open(path string, chunkSize int) (*Source, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}

	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}

	return &Source{f: f, r: r, path: path, chunk: chunkSize}, nil
}

// NextBatch reads and decodes up to one chunk of packets. Undecodable
// packets are skipped and counted, never surfaced as errors. It returns
// io.EOF once the capture is exhausted.
func (s *Source) NextBatch() ([]model.Record, error) {
	if s.done {
		return nil, io.EOF
	}

	batch := make([]model.Record, 0, s.chunk)
	for len(batch) < s.chunk {
		data, _, err := s.r.ReadPacketData()
		if err == io.EOF {
			s.done = true
			if len(batch) == 0 {
				return nil, io.EOF
			}
			return batch, nil
		}
		if err != nil {
			s.done = true
			return nil, &model.IOError{Op: "read", Path: s.path, Err: err}
		}

		rec, perr := protocol.ParsePacket(data)
		if perr != nil {
			s.skipped++
			continue
		}
		batch = append(batch, rec)
	}
	return batch, nil
}

// Skipped returns the number of undecodable packets dropped so far.
func (s *Source) Skipped() uint64 {
	return s.skipped
}

// Close closes the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}
