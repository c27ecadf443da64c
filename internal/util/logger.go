package util

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig configures the optional rotating log file.
type LogConfig struct {
	Path       string `yaml:"path"`       // Log file; empty logs to stderr
	MaxSize    int    `yaml:"maxSize"`    // Megabytes per file before rotation
	MaxBackups int    `yaml:"maxBackups"` // Old files to keep
	MaxAge     int    `yaml:"maxAge"`     // Days
	Compress   bool   `yaml:"compress"`
}

// DefaultLogConfig logs to stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
}

// NewLogger builds the process logger. Without a file path it is zap's
// development logger when verbose and the production logger otherwise. The
// returned closer must be closed on exit.
func NewLogger(cfg LogConfig, verbose bool) (*zap.Logger, io.Closer, error) {
	if cfg.Path != "" {
		logger, closer, err := NewRotatingFileLogger(cfg, verbose)
		return logger, closer, errors.Wrap(err, "create logger")
	}

	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	return logger, nopCloser{}, errors.Wrap(err, "create logger")
}

// NewRotatingFileLogger writes console-encoded entries to cfg.Path through a
// lumberjack rotating writer.
func NewRotatingFileLogger(cfg LogConfig, debug bool) (*zap.Logger, io.Closer, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}

	rot := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	encCfg := zap.NewProductionEncoderConfig()
	level := zap.InfoLevel
	if debug {
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zap.DebugLevel
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	enc := zapcore.NewConsoleEncoder(encCfg)

	core := zapcore.NewCore(enc, zapcore.AddSync(rot), level)
	return zap.New(core, zap.AddCaller()), rot, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OrNop returns logger, or a no-op logger when it is nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// Log logs a formatted debug message if verbose is true.
func Log(logger *zap.Logger, verbose bool, format string, args ...any) {
	if verbose && logger != nil {
		logger.Sugar().Debugf(format, args...)
	}
}

// ProgressLogger reports progress towards a known number of events. It is
// safe for concurrent use.
type ProgressLogger struct {
	mu             sync.Mutex
	logger         *zap.Logger
	totalEvents    uint64
	what           string
	loggedEvents   uint64
	logStep        uint64
	nextEventToLog uint64
	enabled        bool
	startTime      time.Time
}

// NewProgressLogger creates a progress logger that reports roughly every 5%.
func NewProgressLogger(logger *zap.Logger, totalEvents uint64, what string, enable bool) *ProgressLogger {
	pl := &ProgressLogger{
		logger:      OrNop(logger),
		totalEvents: totalEvents,
		what:        what,
		enabled:     enable,
		startTime:   time.Now(),
	}

	percFraction := uint64(20) // Default to 5% steps
	if totalEvents >= 100_000_000 {
		percFraction = 100
	}
	pl.logStep = (totalEvents + percFraction - 1) / percFraction
	if pl.logStep == 0 {
		pl.logStep = 1
	}

	if enable {
		pl.nextEventToLog = pl.logStep
	} else {
		pl.nextEventToLog = ^uint64(0)
	}
	return pl
}

// Log records n events and reports when a step boundary is crossed.
func (pl *ProgressLogger) Log(n uint64) {
	if !pl.enabled {
		return
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.loggedEvents += n
	if pl.loggedEvents >= pl.nextEventToLog && pl.loggedEvents < pl.totalEvents {
		pl.update()
		for pl.nextEventToLog <= pl.loggedEvents {
			pl.nextEventToLog += pl.logStep
		}
	}
}

// Finalize reports completion.
func (pl *ProgressLogger) Finalize() {
	if !pl.enabled {
		return
	}
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.loggedEvents = pl.totalEvents
	pl.update()
}

// Events returns the number of events recorded so far.
func (pl *ProgressLogger) Events() uint64 {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.loggedEvents
}

func (pl *ProgressLogger) update() {
	perc := uint64(100)
	if pl.totalEvents > 0 {
		perc = (100 * pl.loggedEvents) / pl.totalEvents
	}
	pl.logger.Info("progress",
		zap.String("what", pl.what),
		zap.Uint64("done", pl.loggedEvents),
		zap.Uint64("total", pl.totalEvents),
		zap.Uint64("percent", perc),
		zap.Duration("elapsed", time.Since(pl.startTime)),
	)
}
