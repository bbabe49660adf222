package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ncsdec/internal/decomp"
	"ncsdec/internal/diag"
	"ncsdec/internal/ncs"
)

var decompileCmd = &cobra.Command{
	Use:   "decompile [flags] <file.ncs> [more.ncs ...]",
	Short: "Decompile NCS bytecode to NSS source",
	Args:  cobra.MinimumNArgs(1),
	RunE:  decompileExecution,
}

func init() {
	decompileCmd.Flags().Bool("strict-signatures", false, "fail when any signature slot stays unresolved")
	decompileCmd.Flags().Int("max-iterations", 16, "cap on per-component fixed-point passes")
	decompileCmd.Flags().Bool("prune-dead", true, "drop subroutines unreachable from the entry point")
	decompileCmd.Flags().Int("jobs", 1, "decompile this many files concurrently")
	decompileCmd.Flags().StringP("output", "o", "", "output file (single input) or directory; default: alongside input")
	decompileCmd.Flags().Bool("listing", false, "print the decoded instruction stream instead of decompiling")
	decompileCmd.Flags().Bool("stdout", false, "write NSS text to stdout instead of files")
}

func decompileExecution(cmd *cobra.Command, args []string) error {
	strict, _ := cmd.Flags().GetBool("strict-signatures")
	maxIter, _ := cmd.Flags().GetInt("max-iterations")
	pruneDead, _ := cmd.Flags().GetBool("prune-dead")
	jobs, _ := cmd.Flags().GetInt("jobs")
	output, _ := cmd.Flags().GetString("output")
	listing, _ := cmd.Flags().GetBool("listing")
	toStdout, _ := cmd.Flags().GetBool("stdout")
	maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return err
	}
	game, err := cmd.Root().PersistentFlags().GetString("game")
	if err != nil {
		return err
	}

	if listing {
		return printListings(args)
	}
	if output != "" && len(args) > 1 {
		if info, err := os.Stat(output); err != nil || !info.IsDir() {
			return fmt.Errorf("--output must be a directory when decompiling multiple files")
		}
	}

	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	conf := decomp.Config{
		StrictSignatures:        strict,
		GameProfile:             game,
		MaxIterations:           maxIter,
		PreserveDeadSubroutines: !pruneDead,
		MaxDiagnostics:          maxDiags,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results := decomp.Batch(ctx, args, table, conf, jobs)
	failed := 0
	for _, r := range results {
		printDiagnostics(r.Path, r.Diags)
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s: %v\n", errorLabel(), r.Path, r.Err)
			continue
		}
		if toStdout {
			fmt.Print(r.Text)
			continue
		}
		dest := outputPath(r.Path, output, len(results) > 1)
		if err := os.WriteFile(dest, []byte(r.Text), 0o644); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %s: %v\n", errorLabel(), r.Path, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func outputPath(input, output string, multi bool) string {
	base := strings.TrimSuffix(input, ".ncs") + ".nss"
	if output == "" {
		return base
	}
	if multi {
		return output + string(os.PathSeparator) + baseName(base)
	}
	return output
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, os.PathSeparator); i >= 0 {
		return path[i+1:]
	}
	return path
}

func printListings(paths []string) error {
	var buf bytes.Buffer
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		instrs, err := ncs.Decode(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "; %s\n", path)
		for i := range instrs {
			fmt.Fprintln(&buf, instrs[i].String())
		}
	}
	_, err := os.Stdout.Write(buf.Bytes())
	return err
}

func printDiagnostics(path string, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s: %s: [%s] at %s: %s\n",
			severityLabel(d.Severity), path, d.Code, d.Primary, d.Message)
	}
}

func severityLabel(sev diag.Severity) string {
	if !isTerminal(os.Stderr) {
		return sev.String()
	}
	switch sev {
	case diag.SevError:
		return color.RedString(sev.String())
	case diag.SevWarning:
		return color.YellowString(sev.String())
	}
	return color.CyanString(sev.String())
}

func errorLabel() string {
	if isTerminal(os.Stderr) {
		return color.RedString("ERROR")
	}
	return "ERROR"
}
