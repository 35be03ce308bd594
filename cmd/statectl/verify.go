package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/statebase/statebase/db"
	"github.com/statebase/statebase/segment"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a store for clean shutdown and a matching fingerprint",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		d, err := db.Open(viper.GetString("dir"), db.ReadOnly, 0)
		switch {
		case errors.Is(err, segment.ErrDirty):
			fmt.Fprintln(out, "DIRTY: the store was not shut down cleanly")
			return err
		case errors.Is(err, db.ErrEnvironmentMismatch):
			fmt.Fprintln(out, "MISMATCH: the store was produced by a different environment")
			return err
		case err != nil:
			return err
		}
		defer d.Close()

		fmt.Fprintln(out, "OK: clean shutdown, fingerprint matches host")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
