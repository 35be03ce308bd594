package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "statectl",
	Short: "Inspect and manage statebase store directories",
	Long: `statectl is a tool for creating, inspecting, and verifying statebase
store directories. A store directory holds a single shared_memory.bin
segment whose contents are validated against the host toolchain.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
		if viper.GetBool("verbose") {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringP("dir", "d", ".", "Store directory")
	pf.Uint64("size", 1<<30, "Requested segment size in bytes (multiple of 2 MiB)")
	pf.String("mode", "mapped", "Residency mode: mapped, heap, or locked")
	pf.Bool("allow-dirty", false, "Permit opening a store whose dirty flag is set")
	pf.StringSlice("hugepage-path", nil, "Candidate hugetlbfs mounts for locked mode")
	pf.BoolP("verbose", "v", false, "Enable verbose output")

	if err := viper.BindPFlags(pf); err != nil {
		panic(err)
	}
}

// initConfig loads an optional statectl.yaml from the working directory
// or from $HOME/.config/statectl; flags win over file values.
func initConfig() {
	viper.SetConfigName("statectl")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/statectl")
	}
	viper.SetEnvPrefix("STATECTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		logrus.Debugf("using config file %s", viper.ConfigFileUsed())
	}
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
