package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerd",
		Short:         "Account authority and conditional transfer ledger tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("home", defaultHome(), "directory holding the configuration and genesis")
	root.PersistentFlags().String("log-level", "info", "minimal level of logged events")

	viper.SetEnvPrefix("ledgerd")
	viper.AutomaticEnv()
	cobra.CheckErr(viper.BindPFlag("home", root.PersistentFlags().Lookup("home")))
	cobra.CheckErr(viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level")))

	root.AddCommand(initCmd(), applyCmd(), versionCmd())
	return root
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ledgerd"
	}
	return filepath.Join(home, ".ledgerd")
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
