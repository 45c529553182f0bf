package model

// RecordSource is a lazy, finite, non-restartable stream of normalized
// records. Implementations read their input in bounded-size chunks so that
// peak memory stays independent of input size.
type RecordSource interface {
	// NextBatch returns the next chunk of records. It returns io.EOF once the
	// input is exhausted. Any other error means the underlying read failed and
	// the stream is dead.
	NextBatch() ([]Record, error)

	// Skipped returns the number of malformed rows dropped so far.
	Skipped() uint64

	// Close releases the underlying input.
	Close() error
}
