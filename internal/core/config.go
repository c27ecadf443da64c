package core

import (
	"fmt"
	"math/bits"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// Constants for the text pipeline and the binary format.
const (
	DefaultChunkSize    = 4096    // Lines per parallel work item
	DefaultMaxLineBytes = 1 << 20 // Longest accepted input line
	DefaultOutputPath   = "out.dqasm"
	TextSuffix          = ".qasm"
)

// QubitFieldWidth returns ceil(log2(numQubits)), the number of bits needed
// to address any qubit of a circuit with numQubits qubits. One qubit needs
// no bits; zero qubits is treated the same way.
func QubitFieldWidth(numQubits uint32) uint8 {
	if numQubits <= 1 {
		return 0
	}
	return uint8(bits.Len32(numQubits - 1))
}

// GateBits returns the encoded size of a gate record in bits.
func GateBits(op Opcode, width uint8) uint64 {
	return OpcodeBits + uint64(op.Arity())*uint64(width)
}

// Strategy selects the text extraction algorithm.
type Strategy int

const (
	StrategyAuto       Strategy = iota // parallel when NumThreads > 1
	StrategySequential                 // dependency-layered, single pass
	StrategyParallel                   // line-ordered, worker pool
)

var strategyNames = map[Strategy]string{
	StrategyAuto:       "auto",
	StrategySequential: "sequential",
	StrategyParallel:   "parallel",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy converts a strategy name to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StrategyAuto, nil
	}
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return StrategyAuto, errors.Errorf("unknown strategy %q (want auto, sequential or parallel)", name)
}

// MarshalYAML implements yaml.Marshaler.
func (s Strategy) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strategy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseStrategy(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseConfig holds parameters for text extraction.
type ParseConfig struct {
	Strategy         Strategy `yaml:"strategy"`
	NumThreads       int      `yaml:"numThreads"`
	ChunkSize        int      `yaml:"chunkSize"`    // Lines per parallel work item
	MaxLineBytes     int      `yaml:"maxLineBytes"` // Scanner buffer limit
	StrictVocabulary bool     `yaml:"strictVocabulary"`
	Verbose          bool     `yaml:"verbose"`
}

// DefaultParseConfig creates a configuration with default values.
func DefaultParseConfig() ParseConfig {
	return ParseConfig{
		Strategy:         StrategyAuto,
		NumThreads:       runtime.NumCPU(),
		ChunkSize:        DefaultChunkSize,
		MaxLineBytes:     DefaultMaxLineBytes,
		StrictVocabulary: false,
		Verbose:          false,
	}
}

// Normalize replaces unset or invalid fields with defaults.
func (c *ParseConfig) Normalize() {
	if c.NumThreads < 1 {
		c.NumThreads = 1
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.MaxLineBytes < 64 {
		c.MaxLineBytes = DefaultMaxLineBytes
	}
}

// Resolve turns StrategyAuto into a concrete strategy.
func (c *ParseConfig) Resolve() Strategy {
	if c.Strategy != StrategyAuto {
		return c.Strategy
	}
	if c.NumThreads > 1 {
		return StrategyParallel
	}
	return StrategySequential
}
