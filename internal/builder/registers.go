package builder

import (
	"sort"

	"github.com/pkg/errors"

	"dqasmgo/internal/core"
)

// Register is a declared qubit register mapped into the flat qubit space.
type Register struct {
	Name   string
	Offset uint32
	Size   uint32
}

// RegisterTable assigns each declared register a base offset in a single
// flattened qubit space. Offsets follow declaration order and never overlap.
type RegisterTable struct {
	regs  map[string]Register
	count int
	next  uint64 // First unassigned qubit
}

// NewRegisterTable creates an empty table.
func NewRegisterTable() *RegisterTable {
	return &RegisterTable{regs: make(map[string]Register)}
}

// Declare assigns name the next size qubits. Declaring a name again shadows
// the earlier register; its old range stays allocated.
func (t *RegisterTable) Declare(name string, size uint32) (Register, error) {
	if t.next+uint64(size) > 1<<32 {
		return Register{}, errors.Wrapf(core.ErrMalformedNumber,
			"register %s[%d] at offset %d exceeds the 32-bit qubit space", name, size, t.next)
	}
	reg := Register{Name: name, Offset: uint32(t.next), Size: size}
	t.regs[name] = reg
	t.next += uint64(size)
	t.count++
	return reg, nil
}

// Lookup returns the current register bound to name.
func (t *RegisterTable) Lookup(name string) (Register, bool) {
	reg, ok := t.regs[name]
	return reg, ok
}

// Resolve maps name[index] to a flat qubit identifier. The index is not
// checked against the register size.
func (t *RegisterTable) Resolve(name string, index uint32) (uint32, error) {
	reg, ok := t.regs[name]
	if !ok {
		return 0, errors.Errorf("unknown register %q", name)
	}
	q := uint64(reg.Offset) + uint64(index)
	if q > uint64(^uint32(0)) {
		return 0, errors.Wrapf(core.ErrMalformedNumber, "qubit %s[%d] overflows the 32-bit qubit space", name, index)
	}
	return uint32(q), nil
}

// Names returns the distinct register names in sorted order.
func (t *RegisterTable) Names() []string {
	names := make([]string, 0, len(t.regs))
	for n := range t.regs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Declarations counts qreg statements, including re-declarations.
func (t *RegisterTable) Declarations() int { return t.count }

// DeclaredQubits is the total size of all declarations.
func (t *RegisterTable) DeclaredQubits() uint64 { return t.next }
