package builder

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dqasmgo/internal/core"
)

// layerBuckets groups gates by dependency layer. Within a layer gates keep
// the order they were added in.
type layerBuckets struct {
	buckets  [][]core.Gate
	nextFree map[uint32]int // First layer in which each qubit is free
	size     int
}

func newLayerBuckets() *layerBuckets {
	return &layerBuckets{nextFree: make(map[uint32]int)}
}

// Add places g in the earliest layer after every earlier gate on its qubits
// and returns that layer.
func (lb *layerBuckets) Add(g core.Gate) int {
	q0, q1, two := g.Qubits()
	layer := lb.nextFree[q0]
	if two {
		if l := lb.nextFree[q1]; l > layer {
			layer = l
		}
	}
	lb.nextFree[q0] = layer + 1
	if two {
		lb.nextFree[q1] = layer + 1
	}

	for len(lb.buckets) <= layer {
		lb.buckets = append(lb.buckets, nil)
	}
	lb.buckets[layer] = append(lb.buckets[layer], g)
	lb.size++
	return layer
}

// NumLayers returns the number of non-empty layers.
func (lb *layerBuckets) NumLayers() int { return len(lb.buckets) }

// Flatten appends all gates to c in increasing layer order.
func (lb *layerBuckets) Flatten(c *core.Circuit) {
	for _, bucket := range lb.buckets {
		for _, g := range bucket {
			c.AddGate(g)
		}
	}
}

// extractSequential builds the circuit in a single pass, reordering gates by
// dependency layer. Gates are only recognized over registers declared on an
// earlier line.
func extractSequential(r io.Reader, cfg *core.ParseConfig, logger *zap.Logger, el *extractLogger) (*core.Circuit, error) {
	stats := el.stats
	regs := NewRegisterTable()
	matcher, err := NewMatcher(regs)
	if err != nil {
		return nil, err
	}
	layers := newLayerBuckets()

	err = scanLines(r, cfg.MaxLineBytes, func(lineNo uint64, line string) error {
		stats.Lines++

		name, size, isQreg, err := ParseQreg(line)
		if err != nil {
			return errors.Wrapf(err, "line %d: register size", lineNo)
		}
		if isQreg {
			reg, err := regs.Declare(name, size)
			if err != nil {
				return errors.Wrapf(err, "line %d", lineNo)
			}
			stats.Registers++
			logger.Debug("register declared",
				zap.String("name", reg.Name),
				zap.Uint32("offset", reg.Offset),
				zap.Uint32("size", reg.Size),
			)
			// Patterns embed the register names
			if matcher, err = NewMatcher(regs); err != nil {
				return err
			}
			return nil
		}

		m, err := matcher.MatchLine(line)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
		switch m.Kind {
		case MatchGate:
			layers.Add(m.Gate)
		case MatchUnsupported:
			return el.Unsupported(cfg, lineNo, m.Mnemonic)
		default:
			stats.Skipped++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c := core.NewCircuitWithCapacity(layers.size)
	layers.Flatten(c)
	stats.DeclaredQubits = regs.DeclaredQubits()
	stats.Gates = c.NumGates()
	stats.Layers = uint64(layers.NumLayers())
	return c, nil
}
