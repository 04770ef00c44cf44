// Package cmd provides the docsync command-line interface.
//
// Configuration is read, lowest priority first, from .docsync.yml in the
// working directory (or the file named by --config or DOCSYNC_CONFIG_FILE),
// then DOCSYNC_<SECTION>_<KEY> environment variables such as
// DOCSYNC_DOCS_DIR, then command-line flags.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/docsync/internal/config"
	"github.com/conneroisu/docsync/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docsync",
	Short: "Keep generated documentation in sync with package sources",
	Long: `docsync regenerates documentation pages when package sources change,
merges them with the hand-written sections of the published pages and
validates the result before writing it.

Quick Start:
  docsync init                 Write a default .docsync.yml
  docsync validate             Validate every page under docs.dir
  docsync sync --dry-run       Show what a sync would change
  docsync watch                Regenerate pages as sources change

Generated regions are wrapped in {/* AUTO_START */} ... {/* AUTO_END */}
and hand-written regions in {/* MANUAL_START */} ... {/* MANUAL_END */}.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .docsync.yml, can also use DOCSYNC_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log.level":  "log-level",
		"log.format": "log-format",
	})
}

// bindFlags binds configuration keys to the named flags of fs.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("bindFlags: no flag named %q", name))
		}
		_ = viper.BindPFlag(key, flag)
	}
}

// initConfig points viper at the configuration file and enables
// DOCSYNC_ environment overrides. A missing file is not an error.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("DOCSYNC_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.FileName)
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(cfg.LoggerConfig())
}

// commandContext returns the command's context, which is nil when a run
// function is called outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
