package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dqasmgo/internal/core"
	"dqasmgo/internal/util"
	"dqasmgo/pkg/dqasm"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configFile string
	strategy   string
	threads    int
	verbose    bool
	strict     bool
	logFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "dqasm <input> [output]",
		Short: "Convert QASM circuits to the dqasm binary format",
		Long: `dqasm converts a restricted OpenQASM 2 circuit into a compact bit-packed
binary encoding, or re-encodes an existing binary file.

Inputs ending in .qasm are parsed as text; anything else is decoded as
binary. The output is always the binary encoding (default out.dqasm).`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.strategy, "strategy", "", "text extraction strategy: auto, sequential or parallel")
	flags.IntVar(&opts.threads, "threads", 0, "worker goroutines for the parallel strategy")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")
	flags.BoolVar(&opts.strict, "strict", false, "fail on recognized gates outside the binary vocabulary")
	flags.StringVar(&opts.logFile, "log-file", "", "write logs to a rotating file")

	rootCmd.AddCommand(newConvertCmd(opts), newInfoCmd(opts))
	return rootCmd
}

// loadConfig merges the config file with flags that were set explicitly.
func (o *options) loadConfig(cmd *cobra.Command) (*dqasm.Config, error) {
	cfg := dqasm.DefaultConfig()
	if o.configFile != "" {
		loaded, err := dqasm.LoadConfig(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		s, err := core.ParseStrategy(o.strategy)
		if err != nil {
			return nil, errors.Wrap(err, "--strategy")
		}
		cfg.Parse.Strategy = s
	}
	if flags.Changed("threads") {
		cfg.Parse.NumThreads = o.threads
	}
	if flags.Changed("verbose") {
		cfg.Parse.Verbose = o.verbose
	}
	if flags.Changed("strict") {
		cfg.Parse.StrictVocabulary = o.strict
	}
	if flags.Changed("log-file") {
		cfg.Log.Path = o.logFile
	}
	cfg.Parse.Normalize()
	return cfg, nil
}

func (o *options) setup(cmd *cobra.Command) (*dqasm.Config, *zap.Logger, io.Closer, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := util.NewLogger(cfg.Log, cfg.Parse.Verbose)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}
