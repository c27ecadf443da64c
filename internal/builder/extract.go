// Package builder turns QASM text into a circuit.
package builder

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dqasmgo/internal/core"
	"dqasmgo/internal/util"
)

// Extract reads QASM text from r and builds a circuit with the strategy
// selected by cfg. A nil cfg uses DefaultParseConfig; a nil logger is
// replaced by a no-op logger.
func Extract(r io.Reader, cfg *core.ParseConfig, logger *zap.Logger) (*core.Circuit, *Stats, error) {
	return ExtractContext(context.Background(), r, cfg, logger)
}

// ExtractContext is Extract with a context that cancels parallel matching.
func ExtractContext(ctx context.Context, r io.Reader, cfg *core.ParseConfig, logger *zap.Logger) (*core.Circuit, *Stats, error) {
	var local core.ParseConfig
	if cfg == nil {
		local = core.DefaultParseConfig()
	} else {
		local = *cfg
	}
	local.Normalize()
	logger = util.OrNop(logger)

	stats := &Stats{Strategy: local.Resolve()}
	el := newExtractLogger(logger, stats)
	el.Init()

	var c *core.Circuit
	var err error
	switch stats.Strategy {
	case core.StrategyParallel:
		util.Log(logger, local.Verbose, "Using PARALLEL extraction with %d threads", local.NumThreads)
		c, err = extractParallel(ctx, r, &local, logger, el)
	case core.StrategySequential:
		util.Log(logger, local.Verbose, "Using SEQUENTIAL extraction")
		c, err = extractSequential(r, &local, logger, el)
	default:
		return nil, nil, errors.Errorf("unknown strategy: %v", stats.Strategy)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%s extraction", stats.Strategy)
	}

	el.Finalize()
	return c, stats, nil
}

// scanLines calls fn with each whitespace-trimmed line and its 1-based
// number.
func scanLines(r io.Reader, maxLineBytes int, fn func(lineNo uint64, line string) error) error {
	sc := bufio.NewScanner(r)
	initial := 64 * 1024
	if initial > maxLineBytes {
		initial = maxLineBytes
	}
	sc.Buffer(make([]byte, 0, initial), maxLineBytes)

	var lineNo uint64
	for sc.Scan() {
		lineNo++
		if err := fn(lineNo, strings.TrimSpace(sc.Text())); err != nil {
			return err
		}
	}
	return errors.Wrapf(sc.Err(), "read line %d", lineNo+1)
}
