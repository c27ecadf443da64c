package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dqasmgo/internal/core"
	"dqasmgo/internal/serial"
	"dqasmgo/pkg/dqasm"
)

func newInfoCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Describe a circuit file",
		Long: `Print the binary header fields, qubit field width, per-opcode gate counts
and fingerprint of a circuit. Text inputs are parsed first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closer, err := opts.setup(cmd)
			if err != nil {
				return err
			}
			defer closer.Close()
			defer logger.Sync() //nolint:errcheck

			c, stats, err := dqasm.Load(args[0], cfg, logger)
			if err != nil {
				return err
			}
			h := serial.NewHeader(c)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "file\t%s\n", args[0])
			fmt.Fprintf(tw, "version\t%d\n", h.Version)
			fmt.Fprintf(tw, "qubits\t%d\n", h.NumQubits)
			fmt.Fprintf(tw, "gates\t%d\n", h.NumGates)
			fmt.Fprintf(tw, "qubit width\t%d bits\n", h.QubitWidth())
			fmt.Fprintf(tw, "encoded size\t%d bytes\n", serial.EncodedSize(c))
			counts := c.OpcodeCounts()
			for op := core.Opcode(0); op < core.NumOpcodes; op++ {
				fmt.Fprintf(tw, "  %s\t%d\n", op, counts[op])
			}
			if stats != nil {
				fmt.Fprintf(tw, "strategy\t%s\n", stats.Strategy)
				fmt.Fprintf(tw, "unsupported\t%d\n", stats.Unsupported)
				if stats.Layers > 0 {
					fmt.Fprintf(tw, "layers\t%d\n", stats.Layers)
				}
			}
			fmt.Fprintf(tw, "fingerprint\t%s\n", dqasm.FormatFingerprint(c.Fingerprint()))
			return tw.Flush()
		},
	}
}
