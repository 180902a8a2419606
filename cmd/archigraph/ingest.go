// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archigraph/archigraph/internal/graph"
	"github.com/archigraph/archigraph/internal/model"
	agerr "github.com/archigraph/archigraph/pkg/errors"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <workspace-file>",
		Short: "Submit a workspace document to a running server",
		Long:  "Parse a workspace document (JSON or YAML) and submit it to the Global graph, or rebuild one system's Local graph with --local.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().String("address", defaultAddress, "server address (host:port)")
	cmd.Flags().String("local", "", "rebuild the Local graph of this cmdb instead of ingesting into Global")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("address")
	local, _ := cmd.Flags().GetString("local")

	ws, err := readWorkspace(args[0])
	if err != nil {
		return err
	}

	path := "/api/v1/graph"
	if local != "" {
		path = "/api/v1/graph/local/" + local
	}

	var res graph.Result
	if err := newServerClient(addr).postJSON(path, ws, &res); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if local != "" {
		_, err = fmt.Fprintf(out, "Rebuilt Local graph of %s: %d elements, %d relationships\n",
			res.CMDB, res.Elements, res.Relationships)
		return err
	}
	_, err = fmt.Fprintf(out, "Ingested %s at version %d: %d elements, %d relationships\n",
		res.CMDB, res.Version, res.Elements, res.Relationships)
	return err
}

// readWorkspace loads and validates a workspace document, picking the codec
// by file extension.
func readWorkspace(path string) (*model.Workspace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, agerr.Wrapf(err, agerr.CodeCLIInputInvalid, "reading workspace file %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return model.ParseYAML(data)
	default:
		return model.ParseJSON(data)
	}
}
