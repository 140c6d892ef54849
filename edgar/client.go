// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package edgar searches SEC EDGAR full-text search, downloads the matching
// filing documents and turns them into mining projects.
package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/supplymri/supplymri/utils/httputils"
)

// Defaults used when ClientOptions leaves a field empty.
const (
	DefaultUserAgent   = "supplyMRI/0.1 (contact@supplymri.example)"
	DefaultSearchURL   = "https://efts.sec.gov/LATEST/search-index"
	DefaultArchivesURL = "https://www.sec.gov/Archives/edgar/data"
	DefaultThrottle    = 300 * time.Millisecond
)

// ClientOptions configuration for Client.
type ClientOptions struct {
	// UserAgent is the User-Agent header. SEC requires a contact address.
	UserAgent string

	// Minimum delay between requests. Zero disables throttling
	Throttle time.Duration

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool

	// Full-text search endpoint
	SearchURL string

	// Base of the document archive
	ArchivesURL string
}

// DefaultClientOptions returns the options used by NewClient(nil).
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		UserAgent:   DefaultUserAgent,
		Throttle:    DefaultThrottle,
		SearchURL:   DefaultSearchURL,
		ArchivesURL: DefaultArchivesURL,
	}
}

// ClientMetrics tracks various metrics collected during client operations.
type ClientMetrics struct {
	SearchMetrics
	DownloadMetrics
}

// Merge combines the metrics from another ClientMetrics instance into this one.
func (m *ClientMetrics) Merge(other *ClientMetrics) *ClientMetrics {
	if other == nil {
		return m
	}

	m.SearchMetrics.Merge(&other.SearchMetrics)
	m.DownloadMetrics.Merge(&other.DownloadMetrics)

	return m
}

// Client talks to EDGAR full-text search and the filing archive.
type Client struct {
	client  *http.Client
	options ClientOptions
	Metrics ClientMetrics
}

// NewClient creates a new client. Empty options fall back to the defaults.
func NewClient(options *ClientOptions) *Client {
	opts := *DefaultClientOptions()

	if options != nil {
		if options.UserAgent != "" {
			opts.UserAgent = options.UserAgent
		}

		if options.SearchURL != "" {
			opts.SearchURL = options.SearchURL
		}

		if options.ArchivesURL != "" {
			opts.ArchivesURL = options.ArchivesURL
		}

		opts.Throttle = options.Throttle
		opts.EnableHTTPTrace = options.EnableHTTPTrace
		opts.EnableHTTPBodyTrace = options.EnableHTTPBodyTrace
	}

	client := httputils.NewClient(httputils.ClientOptions{
		// the transport negotiates gzip on its own
		Headers: map[string]string{
			"User-Agent": opts.UserAgent,
		},
		Throttle:            opts.Throttle,
		Timeout:             30 * time.Second,
		EnableHTTPTrace:     opts.EnableHTTPTrace,
		EnableHTTPBodyTrace: opts.EnableHTTPBodyTrace,
	})

	return &Client{
		client:  client,
		options: opts,
	}
}

// get issues a GET request and validates the response. The caller owns the
// body.
func (c *Client) get(ctx context.Context, rawURL string, params url.Values, wantJSON bool) (*http.Response, error) {
	if len(params) > 0 {
		rawURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if err := httputils.CheckResponse(resp, wantJSON); err != nil {
		return nil, errors.Join(err, resp.Body.Close())
	}

	return resp, nil
}

// getJSON decodes the JSON response of rawURL into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, v any) (err error) {
	resp, err := c.get(ctx, rawURL, params, true)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", rawURL, err)
	}

	return nil
}
