package builder

import (
	"strconv"
	"strings"
	"sync"

	"github.com/coregx/ahocorasick"
	"github.com/coregx/coregex"
	"github.com/pkg/errors"

	"dqasmgo/internal/core"
)

const qregSrc = `^(qreg)\s+([a-zA-Z_][a-zA-Z0-9_]*)\[(\d+)\];$`

// qregPatterns hands out one compiled declaration pattern per concurrent
// caller.
var qregPatterns = sync.Pool{
	New: func() any { return coregex.MustCompile(qregSrc) },
}

// ParseQreg recognizes a register declaration. ok is false for any other
// line; err is set when the line is a declaration with an unusable size.
func ParseQreg(line string) (name string, size uint32, ok bool, err error) {
	if !strings.HasPrefix(line, "qreg") {
		return "", 0, false, nil
	}
	re := qregPatterns.Get().(*coregex.Regex)
	m := re.FindStringSubmatch(line)
	qregPatterns.Put(re)
	if m == nil {
		return "", 0, false, nil
	}
	size, err = parseIndex(m[3])
	if err != nil {
		return m[2], 0, true, err
	}
	return m[2], size, true, nil
}

func parseIndex(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(core.ErrMalformedNumber, "%q", s)
	}
	return uint32(v), nil
}

// MatchKind classifies a matched line.
type MatchKind int

const (
	MatchNone        MatchKind = iota // not a recognized statement
	MatchGate                         // a gate from the vocabulary
	MatchUnsupported                  // a recognized mnemonic without an opcode
)

// Match is the result of matching one line.
type Match struct {
	Kind     MatchKind
	Gate     core.Gate
	Mnemonic string
}

// Matcher recognizes gate statements over a fixed set of registers. A
// compiled coregex pattern keeps per-search scratch state, so a Matcher must
// not be used by more than one goroutine at a time; use Clone to obtain a
// matcher per goroutine. The register table and the prefilter are shared
// read-only between clones.
type Matcher struct {
	regs      *RegisterTable
	prefilter *ahocorasick.Automaton
	twoSrc    string
	oneSrc    string
	twoQubit  *coregex.Regex
	oneQubit  *coregex.Regex
}

// NewMatcher compiles the gate patterns for the registers currently in regs.
// With no registers every line is rejected.
func NewMatcher(regs *RegisterTable) (*Matcher, error) {
	m := &Matcher{regs: regs}
	names := regs.Names()
	if len(names) == 0 {
		return m, nil
	}

	quoted := make([]string, len(names))
	b := ahocorasick.NewBuilder()
	for i, n := range names {
		quoted[i] = coregex.QuoteMeta(n)
		b.AddPattern([]byte(n + "["))
	}
	auto, err := b.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build register prefilter")
	}
	m.prefilter = auto

	alt := "(" + strings.Join(quoted, "|") + ")"
	single := append([]string{}, opcodeMnemonics()...)
	single = append(single, core.UnsupportedMnemonics...)
	m.twoSrc = `^(cx)\s+` + alt + `\[(\d+)\],\s*` + alt + `\[(\d+)\];$`
	m.oneSrc = `^(` + strings.Join(single, "|") + `)\s+` + alt + `\[(\d+)\];$`
	if err := m.compile(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Matcher) compile() error {
	var err error
	if m.twoQubit, err = coregex.Compile(m.twoSrc); err != nil {
		return errors.Wrap(err, "compile two-qubit pattern")
	}
	if m.oneQubit, err = coregex.Compile(m.oneSrc); err != nil {
		return errors.Wrap(err, "compile single-qubit pattern")
	}
	return nil
}

// Clone returns a matcher with freshly compiled patterns over the same
// registers and prefilter.
func (m *Matcher) Clone() (*Matcher, error) {
	c := &Matcher{
		regs:      m.regs,
		prefilter: m.prefilter,
		twoSrc:    m.twoSrc,
		oneSrc:    m.oneSrc,
	}
	if c.prefilter == nil {
		return c, nil
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return c, nil
}

// opcodeMnemonics lists the single-qubit mnemonics of the vocabulary.
func opcodeMnemonics() []string {
	var out []string
	for op := core.Opcode(0); op < core.NumOpcodes; op++ {
		if !op.IsTwoQubit() {
			out = append(out, op.String())
		}
	}
	return out
}

// MatchLine matches a trimmed line. Lines that are not gate statements over
// known registers yield MatchNone and no error.
func (m *Matcher) MatchLine(line string) (Match, error) {
	if m.prefilter == nil || !m.prefilter.IsMatch([]byte(line)) {
		return Match{}, nil
	}

	if strings.HasPrefix(line, "cx") {
		if sm := m.twoQubit.FindStringSubmatch(line); sm != nil {
			q0, err := m.resolve(sm[2], sm[3])
			if err != nil {
				return Match{}, err
			}
			q1, err := m.resolve(sm[4], sm[5])
			if err != nil {
				return Match{}, err
			}
			return Match{Kind: MatchGate, Gate: core.CX(q0, q1), Mnemonic: sm[1]}, nil
		}
		return Match{}, nil
	}

	sm := m.oneQubit.FindStringSubmatch(line)
	if sm == nil {
		return Match{}, nil
	}
	q, err := m.resolve(sm[2], sm[3])
	if err != nil {
		return Match{}, err
	}
	op, ok := core.LookupOpcode(sm[1])
	if !ok {
		return Match{Kind: MatchUnsupported, Gate: core.Gate{Q0: q}, Mnemonic: sm[1]}, nil
	}
	return Match{Kind: MatchGate, Gate: core.NewGate(op, q, 0), Mnemonic: sm[1]}, nil
}

func (m *Matcher) resolve(name, index string) (uint32, error) {
	i, err := parseIndex(index)
	if err != nil {
		return 0, err
	}
	return m.regs.Resolve(name, i)
}
