// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Archigraph Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	agerr "github.com/archigraph/archigraph/pkg/errors"
)

// defaultAddress is where archigraph serve listens unless configured
// otherwise.
const defaultAddress = "127.0.0.1:8184"

// defaultHTTPClient is the package-level HTTP client used by server-facing
// commands.
var defaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// serverClient provides HTTP access to a running archigraph server.
type serverClient struct {
	baseURL string
	http    *http.Client
}

// newServerClient creates a client targeting the given host:port address.
func newServerClient(addr string) *serverClient {
	return &serverClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *serverClient) getJSON(path string, dest any) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return dialOrRequestError(err)
	}
	return decodeResponse(resp, dest)
}

// postJSON performs a POST request with a JSON body and decodes the JSON
// response into dest.
func (c *serverClient) postJSON(path string, body, dest any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return agerr.Wrap(err, agerr.CodeCLIInputInvalid, "encoding request body")
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		return dialOrRequestError(err)
	}
	return decodeResponse(resp, dest)
}

func decodeResponse(resp *http.Response, dest any) error {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return agerr.Errorf(agerr.CodeCLIRequestFailure,
			"server returned status %d: %s", resp.StatusCode, string(body))
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return agerr.Wrap(err, agerr.CodeCLIResponseInvalid, "decoding response")
	}
	return nil
}

func dialOrRequestError(err error) error {
	if isDialError(err) {
		return agerr.New(agerr.CodeCLIServerNotRunning, "server is not running (connection refused)")
	}
	return agerr.Wrap(err, agerr.CodeCLIRequestFailure, "request failed")
}

// isDialError reports whether err is a net dial error (connection refused
// and friends).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
