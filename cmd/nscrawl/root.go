// (c) Siemens AG 2026
//
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/siemens/nscrawler/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd returns the root command with all its sub commands, using a
// fresh configuration.
func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)
	rootCmd := &cobra.Command{
		Use:          "nscrawl",
		Short:        "crawl processes and containers through their namespaces",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "configuration file (YAML, JSON, or TOML)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.String("log-file", "", "rotated log file instead of stderr")
	rootCmd.AddCommand(newCrawlCmd(v), newFeaturesCmd())
	return rootCmd
}

// loadConfig binds the command's flags and then loads the configuration.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (config.Config, error) {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	file, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(v, file)
}
