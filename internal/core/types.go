package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Opcode identifies a gate's operation kind. It is stored in a 2-bit field.
type Opcode uint8

const (
	OpT  Opcode = iota // single-qubit T
	OpCX               // two-qubit controlled-X
	OpH                // single-qubit Hadamard
	OpS                // single-qubit S

	NumOpcodes = 4
)

// OpcodeBits is the width of the opcode field of an encoded gate.
const OpcodeBits = 2

var opcodeNames = [NumOpcodes]string{"t", "cx", "h", "s"}

// String returns the QASM mnemonic for the opcode.
func (op Opcode) String() string {
	if op < NumOpcodes {
		return opcodeNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// IsTwoQubit reports whether the opcode takes two qubit operands.
func (op Opcode) IsTwoQubit() bool {
	return op == OpCX
}

// Arity returns the number of qubit operands (1 or 2).
func (op Opcode) Arity() int {
	if op.IsTwoQubit() {
		return 2
	}
	return 1
}

// Valid reports whether op is part of the vocabulary.
func (op Opcode) Valid() bool {
	return op < NumOpcodes
}

// LookupOpcode maps a QASM mnemonic to its opcode.
func LookupOpcode(name string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == name {
			return Opcode(i), true
		}
	}
	return 0, false
}

// UnsupportedMnemonics lists operations the text matcher recognizes but the
// vocabulary cannot represent. They are reported, never encoded.
var UnsupportedMnemonics = []string{"tdg"}

// Gate is a single quantum operation. Q1 is only meaningful for two-qubit
// opcodes; single-qubit constructors leave it zero.
type Gate struct {
	Op Opcode
	Q0 uint32
	Q1 uint32
}

func T(q uint32) Gate { return Gate{Op: OpT, Q0: q} }
func H(q uint32) Gate { return Gate{Op: OpH, Q0: q} }
func S(q uint32) Gate { return Gate{Op: OpS, Q0: q} }

// CX builds a controlled-X with control q0 and target q1.
func CX(q0, q1 uint32) Gate { return Gate{Op: OpCX, Q0: q0, Q1: q1} }

// NewGate builds a gate for op. q1 is dropped for single-qubit opcodes.
func NewGate(op Opcode, q0, q1 uint32) Gate {
	if !op.IsTwoQubit() {
		q1 = 0
	}
	return Gate{Op: op, Q0: q0, Q1: q1}
}

// IsTwoQubit reports whether the gate touches two qubits.
func (g Gate) IsTwoQubit() bool {
	return g.Op.IsTwoQubit()
}

// Qubits returns the gate's operands. The second value is only valid when ok
// is true.
func (g Gate) Qubits() (q0 uint32, q1 uint32, ok bool) {
	if g.IsTwoQubit() {
		return g.Q0, g.Q1, true
	}
	return g.Q0, 0, false
}

// String renders the gate as a QASM statement over a single register "q".
func (g Gate) String() string {
	if g.IsTwoQubit() {
		return fmt.Sprintf("%s q[%d],q[%d];", g.Op, g.Q0, g.Q1)
	}
	return fmt.Sprintf("%s q[%d];", g.Op, g.Q0)
}

// --- Errors ---

var (
	ErrBadMagic           = errors.New("bad magic")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrTruncated          = errors.New("truncated stream")
	ErrNonZeroPadding     = errors.New("non-zero padding bits")
	ErrTrailingData       = errors.New("trailing data after last gate")
	ErrQubitCountMismatch = errors.New("decoded qubit set does not match header")
	ErrQubitOutOfRange    = errors.New("qubit index does not fit field width")
	ErrMalformedNumber    = errors.New("malformed numeric literal")
	ErrUnsupportedGate    = errors.New("unsupported gate")
)

// FormatError reports a binary stream that cannot be decoded. Err is one of
// the sentinel errors above and can be tested with errors.Is.
type FormatError struct {
	Field string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("dqasm format error in %s: %v", e.Field, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// Cause supports github.com/pkg/errors.Cause.
func (e *FormatError) Cause() error {
	return e.Err
}

// NewFormatError wraps err for the given field.
func NewFormatError(field string, err error) error {
	return &FormatError{Field: field, Err: err}
}
