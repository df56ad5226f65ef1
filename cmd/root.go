package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "opsdeck",
	Short: "OpsDeck: rule-based operational alerting and notification delivery",
	Long: `OpsDeck watches business metric snapshots, evaluates alert rules against
them, and fans matching alerts out over email, SMS, push, webhook, and
in-app channels with delivery tracking and retry.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (yaml)")
	rootCmd.AddCommand(serve())
}
