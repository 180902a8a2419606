// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	agerr "github.com/archigraph/archigraph/pkg/errors"
	"github.com/archigraph/archigraph/pkg/health"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  "Check the running server's health probe and display its status.",
		RunE:  runStatus,
	}

	cmd.Flags().String("address", defaultAddress, "server address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body health.Status
	if err := newServerClient(addr).getJSON("/healthz", &body); err != nil {
		if agerr.HasCode(err, agerr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "Server at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Server at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "Server at %s: %s (store: %s)\n", addr, body.Status, body.Store)
	return nil
}
