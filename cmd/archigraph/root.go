// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// NewRootCmd creates the root archigraph command with all subcommands
// registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "archigraph",
		Short:         "Archigraph — versioned architecture graph service",
		Long:          "Archigraph ingests C4 workspace documents into a versioned property graph and serves diagrams, diffs, and influence reports over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags. Config file resolution itself happens in config.Load.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")

	root.AddCommand(
		newServeCmd(),
		newIngestCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with env bindings and flag bindings so
// the standard precedence (flag > env > file > defaults) is handled
// uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	v.SetEnvPrefix("ARCHIGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return agerr.Wrap(err, agerr.CodeCLISetupFailure, "binding verbose flag")
	}

	return nil
}
