// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"io"
	"net/http"
	"os"
	"time"
)

// ClientOptions configures the transport chain built by NewClient.
type ClientOptions struct {
	// Headers added to every request (User-Agent, API keys…)
	Headers map[string]string

	// Minimum interval between two requests of this client
	Throttle time.Duration

	// Overall request timeout
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Base transport, mostly for tests
	Transport http.RoundTripper
}

// NewClient builds an http.Client whose transport chain is
// headers -> throttle -> trace -> transport.
func NewClient(options ClientOptions) *http.Client {
	var httpLogWriter io.Writer
	if options.EnableHTTPTrace || options.EnableHTTPBodyTrace {
		httpLogWriter = os.Stderr
	}

	transport := options.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   4,
			MaxConnsPerHost:       4,
			IdleConnTimeout:       30 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			DisableKeepAlives:     false,
			DisableCompression:    false,
		}
	}

	loggingTransport := &LoggingRoundTripper{
		Writer:    httpLogWriter,
		DumpBody:  options.EnableHTTPBodyTrace,
		Transport: transport,
	}

	throttleTransport := NewThrottleRoundTripper(loggingTransport, options.Throttle)

	headerTransport := &AppendRequestHeadersRoundTripper{
		Headers:   options.Headers,
		Transport: throttleTransport,
	}

	timeout := options.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: headerTransport,
	}
}
