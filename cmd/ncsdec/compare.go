package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ncsdec/internal/diff"
)

var compareCmd = &cobra.Command{
	Use:   "compare <a.nss> <b.nss>",
	Short: "Compare two NSS sources modulo formatting",
	Long: "Normalizes both sources (comments stripped, whitespace collapsed, TRUE/1 and\n" +
		"FALSE/0 folded, trailing float suffixes dropped) and prints a unified diff.\n" +
		"Exits 1 when they differ; round-trip harnesses key off this.",
	Args: cobra.ExactArgs(2),
	RunE: compareExecution,
}

func compareExecution(cmd *cobra.Command, args []string) error {
	a, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	b, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	out := diff.Unified(args[0], string(a), args[1], string(b))
	if out == "" {
		return nil
	}
	fmt.Print(out)
	cmd.SilenceUsage = true
	return fmt.Errorf("sources differ")
}
