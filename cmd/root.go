// root.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/config"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/logging"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/propertysource"
	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/remotefetcher"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Used for flags.
	configFile string
	verbose    bool
	logFile    string

	rootCmd = &cobra.Command{
		Use:   "remoteconf",
		Short: "Keeps an application configured from a remote HTTP endpoint.",
		Long: `Remoteconf polls a configuration document from an HTTP endpoint, caches it
on disk and falls back to the cached copy while the endpoint is unreachable.`,
	}
)

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "", "config file to read from")
	rootCmd.PersistentFlags().StringVar(&logFile, "logFile", "", "log file to write to")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Sets verbose level")
	rootCmd.AddCommand(pollCmd, watchCmd, versionCmd)
}

// setup loads the configuration and builds the logger and the HTTP state
// every subcommand needs.
func setup() (*config.Config, zerolog.Logger, *propertysource.State) {
	cfg, err := config.Load(configFile)
	if err != nil {
		logging.ExitWithMSG(fmt.Sprintf("error loading config: %v", err), 1, nil)
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	writers := logging.SetLoggingWriters(cfg.Logging.File, cfg.Logging.ConsoleDisabled)
	log := logging.New(writers, verbose || cfg.Logging.Verbose)
	if cfg.FilePath != "" {
		log.Info().Str("config file", cfg.FilePath).Send()
	}

	fetcher := remotefetcher.NewHTTPFetcher(
		remotefetcher.WithHTTPClient(remotefetcher.NewHTTPClient(cfg.HTTP.ConnectionTimeout, cfg.HTTP.SocketTimeout)),
		remotefetcher.WithUserAgent("remoteconf/"+versionStr),
	)
	state := propertysource.NewState("http", propertysource.Settings{
		URL:             cfg.HTTP.URL,
		Attributes:      remotefetcher.AttributesFromMap(cfg.HTTP.Attributes),
		PersistenceFile: cfg.HTTP.PersistenceFile,
	}, propertysource.WithFetcher(fetcher), propertysource.WithLogger(log))

	return cfg, log, state
}
