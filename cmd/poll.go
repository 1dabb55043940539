// poll.go
// Copyright (C) Andrew Woodlee 2023
// License: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"git.andrewnw.xyz/CyberShell/remoteconf/pkg/logging"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	pollFallback bool
	pollOutput   string

	pollCmd = &cobra.Command{
		Use:   "poll [flags]",
		Short: "Fetches the configuration once and prints it.",
		Long: `Poll fetches the configuration once, persists it and prints the flattened
properties. The exit status is 1 when no usable configuration was obtained.`,
		Run: poll,
	}
)

func init() {
	pollCmd.Flags().BoolVar(&pollFallback, "fallback", false, "Use the persisted configuration if the endpoint fails")
	pollCmd.Flags().StringVarP(&pollOutput, "output", "o", "yaml", "Output format: yaml or json")
}

func poll(cmd *cobra.Command, args []string) {
	_, log, state := setup()

	ok := state.Update(cmd.Context(), pollFallback)
	props := state.CurrentSnapshot().Properties()

	var (
		out []byte
		err error
	)
	switch pollOutput {
	case "json":
		out, err = json.MarshalIndent(props, "", "  ")
		out = append(out, '\n')
	case "yaml":
		out, err = yaml.Marshal(props)
	default:
		logging.ExitWithMSG(fmt.Sprintf("unknown output format %q", pollOutput), 1, &log)
	}
	if err != nil {
		logging.ExitWithMSG(fmt.Sprintf("error encoding configuration: %v", err), 1, &log)
	}
	os.Stdout.Write(out)

	if !ok {
		os.Exit(1)
	}
}
