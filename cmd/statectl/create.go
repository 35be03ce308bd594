package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/statebase/statebase/db"
	"github.com/statebase/statebase/segment"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create (or grow) a store directory and close it cleanly",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := segment.ParseMode(viper.GetString("mode"))
		if err != nil {
			return err
		}
		dir := viper.GetString("dir")

		opts := []db.Option{db.WithMode(mode)}
		if viper.GetBool("allow-dirty") {
			opts = append(opts, db.AllowDirty())
		}
		if paths := viper.GetStringSlice("hugepage-path"); len(paths) > 0 {
			opts = append(opts, db.WithHugepagePaths(paths))
		}

		d, err := db.Open(dir, db.ReadWrite, viper.GetUint64("size"), opts...)
		if err != nil {
			return err
		}
		created := d.Segment().Created()
		if err := d.Close(); err != nil {
			return err
		}

		if created {
			logrus.Infof("created store in %s", dir)
		} else {
			logrus.Infof("opened existing store in %s", dir)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "OK")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
