package serial

import (
	"io"

	"github.com/pkg/errors"

	"dqasmgo/internal/core"
)

const (
	flushThreshold   = 64 * 1024 * 8 // Buffered payload bits before the encoder drains
	maxPreallocGates = 1 << 20       // Cap on trusting the header's gate count
)

// EncodeGate appends g to bw using width bits per qubit operand.
func EncodeGate(bw *core.BitWriter, g core.Gate, width uint8) error {
	if !g.Op.Valid() {
		return errors.Errorf("encode gate: invalid opcode %d", uint8(g.Op))
	}
	q0, q1, two := g.Qubits()
	if !fits(q0, width) {
		return errors.Wrapf(core.ErrQubitOutOfRange, "qubit %d with width %d", q0, width)
	}
	if two && !fits(q1, width) {
		return errors.Wrapf(core.ErrQubitOutOfRange, "qubit %d with width %d", q1, width)
	}

	bw.WriteBits(uint64(g.Op), core.OpcodeBits)
	bw.WriteBits(uint64(q0), width)
	if two {
		bw.WriteBits(uint64(q1), width)
	}
	return nil
}

func fits(q uint32, width uint8) bool {
	if width >= 32 {
		return true
	}
	return q < uint32(1)<<width
}

// EncodedSize returns the number of bytes WriteCircuit produces for c.
func EncodedSize(c *core.Circuit) uint64 {
	width := core.QubitFieldWidth(c.NumQubits())
	bits := uint64(0)
	for _, g := range c.Gates() {
		bits += core.GateBits(g.Op, width)
	}
	return HeaderSize + (bits+7)/8
}

// Encoder writes circuits to a stream.
type Encoder struct {
	w  io.Writer
	bw *core.BitWriter
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, bw: core.NewBitWriter(0)}
}

// WriteCircuit writes the header followed by the bit-packed gates. Field
// widths derive from the circuit's qubit count.
func (e *Encoder) WriteCircuit(c *core.Circuit) error {
	defer func() { e.bw = core.NewBitWriter(0) }()

	h := NewHeader(c)
	if err := WriteHeader(e.w, h); err != nil {
		return err
	}

	width := h.QubitWidth()
	for i, g := range c.Gates() {
		if err := EncodeGate(e.bw, g, width); err != nil {
			return errors.Wrapf(err, "gate %d", i)
		}
		if e.bw.Len() >= flushThreshold {
			if _, err := e.w.Write(e.bw.Drain()); err != nil {
				return errors.Wrap(err, "write gates")
			}
		}
	}

	// Final partial byte; its unused bits are zero
	rest := e.bw.Bytes()
	if len(rest) > 0 {
		if _, err := e.w.Write(rest); err != nil {
			return errors.Wrap(err, "write gates")
		}
	}
	return nil
}

// Decoder reads circuits from a stream. It never reads past the last byte
// of the circuit it decodes.
type Decoder struct {
	r       io.Reader
	br      *core.BitReader
	scratch [16]byte
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, br: core.NewBitReader(nil)}
}

// ReadCircuit reads a header and exactly NumGates gates.
func (d *Decoder) ReadCircuit() (*core.Circuit, error) {
	defer func() { d.br = core.NewBitReader(nil) }()

	h, err := ReadHeader(d.r)
	if err != nil {
		return nil, err
	}

	prealloc := h.NumGates
	if prealloc > maxPreallocGates {
		prealloc = maxPreallocGates
	}
	c := core.NewCircuitWithCapacity(int(prealloc))
	width := h.QubitWidth()

	for i := uint64(0); i < h.NumGates; i++ {
		g, err := d.DecodeGate(width)
		if err != nil {
			return nil, errors.Wrapf(err, "gate %d of %d", i, h.NumGates)
		}
		c.AddGate(g)
		if i%1024 == 1023 {
			d.br.Discard()
		}
	}

	// Whatever is left of the final byte is padding
	if pad := d.br.Available(); pad > 0 {
		v, err := d.br.ReadBits(uint8(pad))
		if err != nil {
			return nil, err
		}
		if v != 0 {
			return nil, core.NewFormatError("padding", core.ErrNonZeroPadding)
		}
	}
	if c.NumQubits() != h.NumQubits {
		return nil, core.NewFormatError("num_qubits", errors.Wrapf(core.ErrQubitCountMismatch,
			"header declares %d qubits, gates reference %d", h.NumQubits, c.NumQubits()))
	}
	return c, nil
}

// DecodeGate reads one gate record. The opcode byte is fetched first; once
// the arity is known, exactly the bytes still missing for the record are
// fetched and appended to the bit reader.
func (d *Decoder) DecodeGate(width uint8) (core.Gate, error) {
	if err := d.fill(core.OpcodeBits); err != nil {
		return core.Gate{}, err
	}
	raw, err := d.br.ReadBits(core.OpcodeBits)
	if err != nil {
		return core.Gate{}, core.NewFormatError("opcode", err)
	}
	op := core.Opcode(raw)

	operandBits := uint64(op.Arity()) * uint64(width)
	if err := d.fill(operandBits); err != nil {
		return core.Gate{}, err
	}
	q0, err := d.br.ReadBits(width)
	if err != nil {
		return core.Gate{}, core.NewFormatError("qubit", err)
	}
	var q1 uint64
	if op.IsTwoQubit() {
		if q1, err = d.br.ReadBits(width); err != nil {
			return core.Gate{}, core.NewFormatError("qubit", err)
		}
	}
	return core.NewGate(op, uint32(q0), uint32(q1)), nil
}

// fill makes sure at least n bits are buffered, reading the minimum number
// of whole bytes from the stream.
func (d *Decoder) fill(n uint64) error {
	avail := d.br.Available()
	if avail >= n {
		return nil
	}
	need := (n - avail + 7) / 8
	buf := d.scratch[:need]
	if err := readFull(d.r, buf, "gate"); err != nil {
		return err
	}
	d.br.Append(buf)
	return nil
}
