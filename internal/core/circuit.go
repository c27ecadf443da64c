package core

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Circuit is an ordered gate sequence plus the set of qubits it touches.
type Circuit struct {
	gates  []Gate
	qubits map[uint32]struct{}
}

// NewCircuit creates an empty circuit.
func NewCircuit() *Circuit {
	return &Circuit{
		qubits: make(map[uint32]struct{}),
	}
}

// NewCircuitWithCapacity creates an empty circuit with room for n gates.
func NewCircuitWithCapacity(n int) *Circuit {
	return &Circuit{
		gates:  make([]Gate, 0, n),
		qubits: make(map[uint32]struct{}),
	}
}

// AddGate appends g and records its qubits.
func (c *Circuit) AddGate(g Gate) {
	q0, q1, two := g.Qubits()
	c.qubits[q0] = struct{}{}
	if two {
		c.qubits[q1] = struct{}{}
	}
	c.gates = append(c.gates, g)
}

// Gates returns the gate sequence. The slice must not be modified.
func (c *Circuit) Gates() []Gate {
	return c.gates
}

// NumGates returns the number of gates.
func (c *Circuit) NumGates() uint64 {
	return uint64(len(c.gates))
}

// NumQubits returns the number of distinct qubits referenced by any gate.
func (c *Circuit) NumQubits() uint32 {
	return uint32(len(c.qubits))
}

// HasQubit reports whether q is referenced by any gate.
func (c *Circuit) HasQubit(q uint32) bool {
	_, ok := c.qubits[q]
	return ok
}

// Qubits returns the qubit set in increasing order.
func (c *Circuit) Qubits() []uint32 {
	out := make([]uint32, 0, len(c.qubits))
	for q := range c.qubits {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// OpcodeCounts returns how many gates use each opcode.
func (c *Circuit) OpcodeCounts() [NumOpcodes]uint64 {
	var counts [NumOpcodes]uint64
	for _, g := range c.gates {
		if g.Op.Valid() {
			counts[g.Op]++
		}
	}
	return counts
}

// Fingerprint hashes the ordered gate sequence with xxHash. Two circuits
// with equal gate sequences have equal fingerprints; the qubit set is
// implied by the gates.
func (c *Circuit) Fingerprint() uint64 {
	d := xxhash.New()
	var rec [9]byte
	for _, g := range c.gates {
		q0, q1, _ := g.Qubits()
		rec[0] = byte(g.Op)
		binary.LittleEndian.PutUint32(rec[1:5], q0)
		binary.LittleEndian.PutUint32(rec[5:9], q1)
		d.Write(rec[:])
	}
	return d.Sum64()
}

// Equal reports whether both circuits hold the same ordered gates and the
// same qubit set. The unused second operand of single-qubit gates is ignored.
func (c *Circuit) Equal(other *Circuit) bool {
	if other == nil || len(c.gates) != len(other.gates) || len(c.qubits) != len(other.qubits) {
		return false
	}
	for i, g := range c.gates {
		o := other.gates[i]
		if g.Op != o.Op || g.Q0 != o.Q0 {
			return false
		}
		if g.IsTwoQubit() && g.Q1 != o.Q1 {
			return false
		}
	}
	for q := range c.qubits {
		if _, ok := other.qubits[q]; !ok {
			return false
		}
	}
	return true
}
