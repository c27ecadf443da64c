// Package serial implements the bit-packed dqasm binary format.
package serial

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"dqasmgo/internal/core"
)

// Magic identifies a dqasm stream.
var Magic = [6]byte{'D', 'Q', 'A', 'S', 'M', 0}

const (
	FormatVersion uint16 = 1
	HeaderSize           = 6 + 2 + 4 + 8 // magic, version, num_qubits, num_gates
)

// Header is the byte-aligned record preceding the gate payload.
type Header struct {
	Version   uint16
	NumQubits uint32
	NumGates  uint64
}

// NewHeader describes c at the current format version.
func NewHeader(c *core.Circuit) Header {
	return Header{
		Version:   FormatVersion,
		NumQubits: c.NumQubits(),
		NumGates:  c.NumGates(),
	}
}

// QubitWidth returns the per-operand field width for this header.
func (h Header) QubitWidth() uint8 {
	return core.QubitFieldWidth(h.NumQubits)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	offset := 0

	copy(buf[offset:offset+6], Magic[:])
	offset += 6
	binary.LittleEndian.PutUint16(buf[offset:offset+2], h.Version)
	offset += 2
	binary.LittleEndian.PutUint32(buf[offset:offset+4], h.NumQubits)
	offset += 4
	binary.LittleEndian.PutUint64(buf[offset:offset+8], h.NumGates)
	offset += 8

	if offset != HeaderSize {
		return nil, errors.Errorf("internal header marshal error: offset %d != %d", offset, HeaderSize)
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *Header) UnmarshalBinary(data []byte) error {
	hdr, err := ReadHeader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	*h = hdr
	return nil
}

// WriteHeader writes h to w.
func WriteHeader(w io.Writer, h Header) error {
	buf, err := h.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return errors.Wrap(err, "write header")
}

// ReadHeader reads and validates a header. The magic is checked before any
// other field is read.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	var magic [6]byte
	if err := readFull(r, magic[:], "magic"); err != nil {
		return h, err
	}
	if magic != Magic {
		return h, core.NewFormatError("magic", core.ErrBadMagic)
	}

	var rest [HeaderSize - 6]byte
	if err := readFull(r, rest[:], "header"); err != nil {
		return h, err
	}
	h.Version = binary.LittleEndian.Uint16(rest[0:2])
	h.NumQubits = binary.LittleEndian.Uint32(rest[2:6])
	h.NumGates = binary.LittleEndian.Uint64(rest[6:14])

	if h.Version == 0 || h.Version > FormatVersion {
		return h, core.NewFormatError("version", errors.Wrapf(core.ErrUnsupportedVersion, "version %d", h.Version))
	}
	if h.NumQubits == 0 && h.NumGates > 0 {
		return h, core.NewFormatError("num_qubits", errors.Wrapf(core.ErrQubitCountMismatch, "%d gates over zero qubits", h.NumGates))
	}
	return h, nil
}

// readFull maps short reads to ErrTruncated and passes other I/O errors
// through with context.
func readFull(r io.Reader, buf []byte, field string) error {
	_, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return core.NewFormatError(field, core.ErrTruncated)
	}
	return errors.Wrapf(err, "read %s", field)
}
