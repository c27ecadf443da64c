package builder

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dqasmgo/internal/core"
)

// Stats summarizes one extraction run.
type Stats struct {
	Strategy       core.Strategy // Strategy actually used
	Lines          uint64        // Lines read
	Registers      uint64        // qreg statements, re-declarations included
	DeclaredQubits uint64        // Sum of declared register sizes
	Gates          uint64        // Gates added to the circuit
	Unsupported    uint64        // Recognized mnemonics without an opcode
	Skipped        uint64        // Lines that matched nothing
	Layers         uint64        // Dependency layers; sequential only
	Elapsed        time.Duration
}

// Fields renders the stats as structured log fields.
func (s *Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Stringer("strategy", s.Strategy),
		zap.Uint64("lines", s.Lines),
		zap.Uint64("registers", s.Registers),
		zap.Uint64("declaredQubits", s.DeclaredQubits),
		zap.Uint64("gates", s.Gates),
		zap.Uint64("unsupported", s.Unsupported),
		zap.Uint64("skipped", s.Skipped),
		zap.Uint64("layers", s.Layers),
		zap.Duration("elapsed", s.Elapsed),
	}
}

// extractLogger reports the start and end of an extraction run.
type extractLogger struct {
	logger *zap.Logger
	stats  *Stats
	start  time.Time
}

func newExtractLogger(logger *zap.Logger, stats *Stats) *extractLogger {
	return &extractLogger{logger: logger, stats: stats}
}

func (el *extractLogger) Init() {
	el.start = time.Now()
	el.logger.Debug("extraction start", zap.Stringer("strategy", el.stats.Strategy))
}

// Unsupported records a recognized but unencodable statement. Under strict
// vocabulary it returns ErrUnsupportedGate.
func (el *extractLogger) Unsupported(cfg *core.ParseConfig, lineNo uint64, mnemonic string) error {
	if cfg.StrictVocabulary {
		return errors.Wrapf(core.ErrUnsupportedGate, "line %d: %q", lineNo, mnemonic)
	}
	el.stats.Unsupported++
	el.logger.Warn("unsupported gate skipped",
		zap.Uint64("line", lineNo),
		zap.String("gate", mnemonic),
	)
	return nil
}

func (el *extractLogger) Finalize() {
	el.stats.Elapsed = time.Since(el.start)
	el.logger.Info("extraction end", el.stats.Fields()...)
}
