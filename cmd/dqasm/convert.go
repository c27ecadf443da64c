package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dqasmgo/pkg/dqasm"
)

func newConvertCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <input> [output]",
		Short: "Write the binary encoding of a text or binary circuit",
		Example: `  dqasm convert bell.qasm
  dqasm convert bell.qasm bell.dqasm --strategy sequential`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts, args)
		},
	}
}

func runConvert(cmd *cobra.Command, opts *options, args []string) error {
	cfg, logger, closer, err := opts.setup(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync() //nolint:errcheck

	out := ""
	if len(args) > 1 {
		out = args[1]
	}
	res, err := dqasm.ConvertFile(args[0], out, cfg, logger)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s -> %s: %d qubits, %d gates, %d bytes\n",
		res.Input, res.Output, res.Circuit.NumQubits(), res.Circuit.NumGates(), res.BytesWritten)
	if res.Stats != nil && res.Stats.Unsupported > 0 {
		fmt.Fprintf(w, "warning: %d unsupported gates skipped\n", res.Stats.Unsupported)
	}
	return nil
}
