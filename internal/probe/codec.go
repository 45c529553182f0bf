package probe

import (
	"bytes"
	"encoding/gob"

	"github.com/scottsmith200544/Firewall-Analysis/internal/model"
)

// EncodeBatch serializes a record batch with gob for transport over NATS.
// A batch carries its own skip count, so the engine's totals stay exact
// even when parsing happened on the probe side.
func EncodeBatch(batch model.Batch) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(batch); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBatch deserializes a batch received from NATS.
func DecodeBatch(data []byte) (model.Batch, error) {
	var batch model.Batch
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&batch)
	return batch, err
}
