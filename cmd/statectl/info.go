package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/statebase/statebase/db"
	"github.com/statebase/statebase/segment"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show segment size, dirty state, fingerprint, and named objects",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := viper.GetString("dir")
		s, err := segment.Open(dir, segment.Options{
			Size:       0,
			AllowDirty: viper.GetBool("allow-dirty"),
		})
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		p := message.NewPrinter(language.English)

		p.Fprintf(out, "file:          %s\n", filepath.Join(dir, segment.DataFileName))
		p.Fprintf(out, "segment size:  %d bytes\n", s.Size())
		p.Fprintf(out, "arena used:    %d bytes\n", s.Arena().Used())
		p.Fprintf(out, "dirty:         %t\n", s.Dirty())

		if off, n, ok := s.Arena().Find(db.EnvironmentName); ok {
			b, err := s.Arena().Bytes(off, n)
			if err != nil {
				return err
			}
			env, err := db.DecodeEnvironment(b)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "compiler:      %s\n", env.CompilerString())
			fmt.Fprintf(out, "debug build:   %t\n", env.Debug)
			fmt.Fprintf(out, "apple:         %t\n", env.Apple)
			fmt.Fprintf(out, "windows:       %t\n", env.Windows)
			fmt.Fprintf(out, "aux version:   %d\n", env.AuxVersion)
		}

		fmt.Fprintln(out, "named objects:")
		for _, name := range s.Arena().Names() {
			_, n, _ := s.Arena().Find(name)
			p.Fprintf(out, "  %-32s %d bytes\n", name, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
