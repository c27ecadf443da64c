package builder

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dqasmgo/internal/core"
	"dqasmgo/internal/util"
)

type deferredLine struct {
	lineNo uint64
	text   string
}

type unsupportedLine struct {
	lineNo   uint64
	mnemonic string
}

// chunkResult holds the output of one chunk, in line order.
type chunkResult struct {
	gates       []core.Gate
	unsupported []unsupportedLine
	skipped     uint64
}

// extractParallel collects every register declaration first, then matches
// the remaining lines in chunks on at most cfg.NumThreads goroutines. Gates
// keep their textual order. Because all registers are known before matching,
// a gate may reference a register declared further down.
func extractParallel(ctx context.Context, r io.Reader, cfg *core.ParseConfig, logger *zap.Logger, el *extractLogger) (*core.Circuit, error) {
	stats := el.stats
	regs := NewRegisterTable()
	var pending []deferredLine

	err := scanLines(r, cfg.MaxLineBytes, func(lineNo uint64, line string) error {
		stats.Lines++
		name, size, isQreg, err := ParseQreg(line)
		if err != nil {
			return errors.Wrapf(err, "line %d: register size", lineNo)
		}
		if !isQreg {
			pending = append(pending, deferredLine{lineNo: lineNo, text: line})
			return nil
		}
		if _, err := regs.Declare(name, size); err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
		stats.Registers++
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.DeclaredQubits = regs.DeclaredQubits()

	matcher, err := NewMatcher(regs)
	if err != nil {
		return nil, err
	}

	chunkSize := cfg.ChunkSize
	numChunks := (len(pending) + chunkSize - 1) / chunkSize
	results := make([]chunkResult, numChunks)
	progress := util.NewProgressLogger(logger, uint64(numChunks), "chunks", cfg.Verbose)

	logger.Debug("matching deferred lines",
		zap.Int("lines", len(pending)),
		zap.Int("chunks", numChunks),
		zap.Int("threads", cfg.NumThreads),
	)

	// Each goroutine matches with its own compiled patterns
	var matchers sync.Pool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumThreads)
	for i := 0; i < numChunks; i++ {
		lo := i * chunkSize
		hi := lo + chunkSize
		if hi > len(pending) {
			hi = len(pending)
		}
		chunk := pending[lo:hi]
		slot := &results[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			local, _ := matchers.Get().(*Matcher)
			if local == nil {
				var err error
				if local, err = matcher.Clone(); err != nil {
					return err
				}
			}
			defer matchers.Put(local)
			if err := matchChunk(local, chunk, cfg.StrictVocabulary, slot); err != nil {
				return err
			}
			progress.Log(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	progress.Finalize()

	total := 0
	for i := range results {
		total += len(results[i].gates)
	}
	c := core.NewCircuitWithCapacity(total)
	for i := range results {
		res := &results[i]
		for _, gate := range res.gates {
			c.AddGate(gate)
		}
		for _, u := range res.unsupported {
			if err := el.Unsupported(cfg, u.lineNo, u.mnemonic); err != nil {
				return nil, err
			}
		}
		stats.Skipped += res.skipped
	}
	stats.Gates = c.NumGates()
	return c, nil
}

func matchChunk(matcher *Matcher, chunk []deferredLine, strict bool, out *chunkResult) error {
	for _, dl := range chunk {
		m, err := matcher.MatchLine(dl.text)
		if err != nil {
			return errors.Wrapf(err, "line %d", dl.lineNo)
		}
		switch m.Kind {
		case MatchGate:
			out.gates = append(out.gates, m.Gate)
		case MatchUnsupported:
			if strict {
				return errors.Wrapf(core.ErrUnsupportedGate, "line %d: %q", dl.lineNo, m.Mnemonic)
			}
			out.unsupported = append(out.unsupported, unsupportedLine{lineNo: dl.lineNo, mnemonic: m.Mnemonic})
		default:
			out.skipped++
		}
	}
	return nil
}
