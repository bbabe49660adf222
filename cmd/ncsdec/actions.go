package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "Dump the parsed engine-action table",
	Long:  "Prints every action as `\"<name>\" <ret-code> <param-size>`, one per line, indexed by opcode.",
	Args:  cobra.NoArgs,
	RunE:  actionsExecution,
}

func actionsExecution(cmd *cobra.Command, args []string) error {
	table, err := loadTable(cmd)
	if err != nil {
		return err
	}
	for i := 0; i < table.Len(); i++ {
		line, err := table.Dump(i)
		if err != nil {
			continue // indices the catalogue skipped
		}
		fmt.Fprintf(os.Stdout, "%d %s\n", i, line)
	}
	return nil
}
