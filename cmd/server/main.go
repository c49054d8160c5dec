package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nickyhof/EmbedDB/config"
)

// Version is set at build time via -ldflags
var Version = "dev"

// RootOptions holds global flags for all commands. Flags that are set
// override the configuration file.
type RootOptions struct {
	ConfigPath string
	DataDir    string
	Host       string
	Port       int
	PortRange  int
	LogLevel   string
	Migrations string
}

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCommand creates the root command of the gateway.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "embeddb-server",
		Short:         "PostgreSQL wire protocol gateway for EmbedDB",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML configuration file")
	flags.StringVar(&opts.DataDir, "data-dir", "", "database directory (memory if empty)")
	flags.StringVar(&opts.Host, "host", config.DefaultHost, "address to listen on")
	flags.IntVarP(&opts.Port, "port", "p", config.DefaultPort, "desired TCP port")
	flags.IntVar(&opts.PortRange, "port-range", config.DefaultPortRange, "ports above --port to try when it is taken")
	flags.StringVar(&opts.LogLevel, "log-level", "info", "engine log level (debug|info|warn|error)")
	flags.StringVar(&opts.Migrations, "migrations", "", "migration source applied at startup")

	cmd.AddCommand(NewListenCommand(opts))
	cmd.AddCommand(NewDevCommand(opts))

	return cmd
}

// loadConfig reads the configuration file, if any, and applies the flags
// the user set.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = opts.DataDir
	}
	if flags.Changed("host") {
		cfg.Host = opts.Host
	}
	if flags.Changed("port") {
		cfg.Port = opts.Port
		if !flags.Changed("shadow-port") {
			cfg.ShadowPort = opts.Port + 1
		}
	}
	if flags.Changed("port-range") {
		cfg.PortRange = opts.PortRange
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Changed("migrations") {
		cfg.Migrations.Source = opts.Migrations
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
