package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"travelplanner/config"
	"travelplanner/logging"
)

var (
	version = "dev"
	cliArgs config.CliConfig
)

func main() {
	root := &cobra.Command{
		Use:           "travelplanner",
		Short:         "AI travel planner: destination research, events, weather and flights in one report",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if cliArgs.Debug {
				logging.InitLogger(logrus.DebugLevel)
			} else {
				logging.InitLogger(logrus.InfoLevel)
			}
		},
	}
	cliArgs.BindFlags(root.PersistentFlags())
	root.AddCommand(serveCmd(), planCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		logging.GetLogger().Errorln(err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "travelplanner "+version)
		},
	}
}
