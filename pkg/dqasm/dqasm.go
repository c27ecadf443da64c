// Package dqasm converts QASM text circuits to and from the dqasm binary
// format.
package dqasm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"dqasmgo/internal/builder"
	"dqasmgo/internal/core"
	"dqasmgo/internal/serial"
	"dqasmgo/internal/util"
)

// ParseQASM extracts a circuit from QASM text.
func ParseQASM(r io.Reader, cfg *core.ParseConfig, logger *zap.Logger) (*core.Circuit, *builder.Stats, error) {
	return builder.Extract(r, cfg, logger)
}

// WriteCircuit writes the binary encoding of c to w.
func WriteCircuit(w io.Writer, c *core.Circuit) error {
	return serial.NewEncoder(w).WriteCircuit(c)
}

// ReadCircuit decodes one circuit from r. It reads no byte past the end of
// the circuit.
func ReadCircuit(r io.Reader) (*core.Circuit, error) {
	return serial.NewDecoder(r).ReadCircuit()
}

// IsTextPath reports whether path names a QASM text file.
func IsTextPath(path string) bool {
	return strings.HasSuffix(path, core.TextSuffix)
}

// Result describes a completed conversion.
type Result struct {
	Input        string
	Output       string
	FromText     bool
	Circuit      *core.Circuit
	Stats        *builder.Stats // nil for binary input
	BytesWritten uint64
	Fingerprint  uint64
	Elapsed      time.Duration
}

// Load reads a circuit from path, parsing text or decoding binary by suffix.
func Load(path string, cfg *Config, logger *zap.Logger) (*core.Circuit, *builder.Stats, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger = util.OrNop(logger)

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open input")
	}
	defer f.Close()

	if IsTextPath(path) {
		c, stats, err := ParseQASM(f, &cfg.Parse, logger)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parse %s", path)
		}
		return c, stats, nil
	}

	br := bufio.NewReader(f)
	c, err := ReadCircuit(br)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "decode %s", path)
	}
	if _, err := br.Peek(1); err != io.EOF {
		if err != nil {
			return nil, nil, errors.Wrapf(err, "decode %s", path)
		}
		return nil, nil, core.NewFormatError("payload", errors.Wrapf(core.ErrTrailingData, "decode %s", path))
	}
	return c, nil, nil
}

// ConvertFile reads inPath and writes its binary encoding to outPath. An
// empty outPath uses cfg.Output.
func ConvertFile(inPath, outPath string, cfg *Config, logger *zap.Logger) (*Result, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger = util.OrNop(logger)
	if outPath == "" {
		outPath = cfg.Output
	}
	if outPath == "" {
		outPath = core.DefaultOutputPath
	}

	start := time.Now()
	c, stats, err := Load(inPath, cfg, logger)
	if err != nil {
		return nil, err
	}

	written, err := writeFileAtomic(outPath, c)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Input:        inPath,
		Output:       outPath,
		FromText:     IsTextPath(inPath),
		Circuit:      c,
		Stats:        stats,
		BytesWritten: written,
		Fingerprint:  c.Fingerprint(),
		Elapsed:      time.Since(start),
	}
	logger.Info("converted",
		zap.String("input", res.Input),
		zap.String("output", res.Output),
		zap.Bool("text", res.FromText),
		zap.Uint32("qubits", c.NumQubits()),
		zap.Uint64("gates", c.NumGates()),
		zap.Uint64("bytes", res.BytesWritten),
		zap.String("fingerprint", FormatFingerprint(res.Fingerprint)),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// FormatFingerprint renders a circuit fingerprint as 16 hex digits.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}

// writeFileAtomic encodes c into a temporary file next to path and renames
// it over path once complete. On failure path is left untouched.
func writeFileAtomic(path string, c *core.Circuit) (uint64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, errors.Wrap(err, "create output")
	}
	tmpPath := tmp.Name()
	fail := func(err error) (uint64, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}

	if err := tmp.Chmod(0o644); err != nil {
		return fail(errors.Wrap(err, "create output"))
	}

	cw := &countingWriter{w: tmp}
	bw := bufio.NewWriter(cw)
	if err := WriteCircuit(bw, c); err != nil {
		return fail(errors.Wrapf(err, "encode %s", path))
	}
	if err := bw.Flush(); err != nil {
		return fail(errors.Wrapf(err, "write %s", path))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "close %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, errors.Wrapf(err, "rename to %s", path)
	}
	return cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n uint64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += uint64(n)
	return n, err
}
