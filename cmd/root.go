// Package cmd defines the CLI commands for the eizocrawl executable.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hsugimura/eizocrawl/internal/config"
	"github.com/hsugimura/eizocrawl/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eizocrawl",
		Short: "Discovers video-production procurement notices on prefecture sites.",
		Long: `eizocrawl crawls configured municipal procurement pages, extracts
notice text from HTML and PDF attachments, classifies each document
through an external judgment service, filters out expired and duplicate
notices, and appends the survivors to a spreadsheet.`,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newRunCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger(true)

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
