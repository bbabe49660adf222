// Package main implements the ncsdec CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"ncsdec/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ncsdec",
	Short: "NWScript bytecode decompiler",
	Long:  "ncsdec reconstructs NSS source from compiled NCS bytecode (KOTOR, KOTOR II).",
}

func main() {
	rootCmd.Version = version.Plain

	rootCmd.AddCommand(decompileCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("game", "k1", "game profile (k1|k2)")
	rootCmd.PersistentFlags().String("nwscript", "", "explicit path to nwscript.nss (overrides the manifest)")
	rootCmd.PersistentFlags().Bool("no-cache", false, "bypass the parsed action-table cache")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
