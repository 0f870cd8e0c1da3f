package main

import (
	"fmt"
	"os"

	"formatls/internal/config"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var (
	verbosity  int
	logfile    string
	configFile string
	stateDir   string
)

var rootCmd = &cobra.Command{
	Use:           "formatls",
	Short:         "Language server for code formatters",
	Long:          `formatls answers LSP formatting requests with prettier, or gofumpt for Go.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var path *string
		if logfile != "" {
			path = &logfile
		}
		commonlog.Configure(verbosity, path)
	},
	RunE: runServe,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	flags.StringVar(&logfile, "logfile", "", "write logs to this file instead of stderr")
	flags.StringVar(&configFile, "config", "", "JSON file with the server configuration")
	flags.StringVar(&stateDir, "state-dir", "", "directory for persistent state (default $XDG_STATE_HOME/formatls)")

	addServeFlags(rootCmd)
	rootCmd.AddCommand(serveCmd, formatCmd)
}

// loadConfig reads --config onto the defaults and applies --state-dir.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		f, err := os.Open(configFile)
		if err != nil {
			return config.Config{}, err
		}
		defer f.Close()
		if cfg, err = config.LoadFromJSON(f); err != nil {
			return config.Config{}, fmt.Errorf("invalid config %s: %w", configFile, err)
		}
	}
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "formatls:", err)
		os.Exit(1)
	}
}
