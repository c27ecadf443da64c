package serial

import (
	"bytes"

	"github.com/pkg/errors"

	"dqasmgo/internal/core"
)

// Marshal encodes c into a new byte slice.
func Marshal(c *core.Circuit) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(EncodedSize(c)))
	if err := NewEncoder(&buf).WriteCircuit(c); err != nil {
		return nil, errors.Wrap(err, "marshal circuit")
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a circuit that occupies all of data.
func Unmarshal(data []byte) (*core.Circuit, error) {
	r := bytes.NewReader(data)
	c, err := NewDecoder(r).ReadCircuit()
	if err != nil {
		return nil, errors.Wrap(err, "unmarshal circuit")
	}
	if r.Len() > 0 {
		return nil, core.NewFormatError("payload", errors.Wrapf(core.ErrTrailingData, "%d bytes remain", r.Len()))
	}
	return c, nil
}
