package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/statebase/statebase/segment/alloc"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "statectl %s\n", rootCmd.Version)
		fmt.Fprintf(out, "segment format v%d\n", alloc.FormatVersion)
		fmt.Fprintf(out, "built with %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
