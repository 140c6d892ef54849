// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package msha downloads datasets of the MSHA Mine Data Retrieval System
// (MDRS) through the Department of Labor open data API.
package msha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/supplymri/supplymri/utils/httputils"
)

// Defaults used when ClientOptions leaves a field empty.
const (
	DefaultBaseURL    = "https://apiprod.dol.gov/v4"
	DefaultCatalogURL = "https://dol.gov/sites/dolgov/files/Data-Governance/Open%20Data%20Portal/agency-endpoint.csv"
	DefaultThrottle   = 300 * time.Millisecond
)

// APIKeyEnv is the environment variable holding the DOL API key.
const APIKeyEnv = "DOL_API_KEY"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("an API key is required to query the MSHA MDRS API")

// ClientOptions configuration for Client.
type ClientOptions struct {
	// API root, https://apiprod.dol.gov/v4 by default
	BaseURL string

	// Agency/endpoint catalog (CSV)
	CatalogURL string

	// Minimum delay between requests. Zero disables throttling
	Throttle time.Duration

	// Optional User-Agent header
	UserAgent string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool

	// Enables full HTTP body tracing
	EnableHTTPBodyTrace bool
}

// DefaultClientOptions returns the options used by NewClient(key, nil).
func DefaultClientOptions() *ClientOptions {
	return &ClientOptions{
		BaseURL:    DefaultBaseURL,
		CatalogURL: DefaultCatalogURL,
		Throttle:   DefaultThrottle,
	}
}

// Client talks to the DOL open data API.
type Client struct {
	client  *http.Client
	options ClientOptions
	Metrics DatasetMetrics
}

// NewClient creates a new client. The API key is sent on every request.
func NewClient(apiKey string, options *ClientOptions) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	opts := *DefaultClientOptions()

	if options != nil {
		if options.BaseURL != "" {
			opts.BaseURL = options.BaseURL
		}

		if options.CatalogURL != "" {
			opts.CatalogURL = options.CatalogURL
		}

		opts.Throttle = max(options.Throttle, 0)
		opts.UserAgent = options.UserAgent
		opts.EnableHTTPTrace = options.EnableHTTPTrace
		opts.EnableHTTPBodyTrace = options.EnableHTTPBodyTrace
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	headers := map[string]string{
		"X-API-KEY": apiKey,
		"Accept":    "application/json",
	}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	client := httputils.NewClient(httputils.ClientOptions{
		Headers:             headers,
		Throttle:            opts.Throttle,
		Timeout:             60 * time.Second,
		EnableHTTPTrace:     opts.EnableHTTPTrace,
		EnableHTTPBodyTrace: opts.EnableHTTPBodyTrace,
	})

	return &Client{
		client:  client,
		options: opts,
	}, nil
}

// resolve turns an API path into an absolute URL. Absolute URLs are kept.
func (c *Client) resolve(pathOrURL string) string {
	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		return pathOrURL
	}

	return c.options.BaseURL + "/" + strings.TrimLeft(pathOrURL, "/")
}

// get issues a GET request and validates the response. The caller owns the
// body.
func (c *Client) get(ctx context.Context, pathOrURL string, params url.Values, wantJSON bool) (*http.Response, error) {
	rawURL := c.resolve(pathOrURL)
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

// getJSON returns the raw JSON document at path. Keeping it raw preserves
// the key order of the upstream payload.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values) (_ json.RawMessage, err error) {
	resp, err := c.get(ctx, path, params, true)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return raw, nil
}

// FetchMetadata returns the dataset metadata of agency/endpoint.
func (c *Client) FetchMetadata(ctx context.Context, agency, endpoint string) (json.RawMessage, error) {
	raw, err := c.getJSON(ctx, fmt.Sprintf("/get/%s/%s/json/metadata", agency, endpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata of %s/%s: %w", agency, endpoint, err)
	}

	return raw, nil
}

// FetchPage returns a single page of dataset results.
func (c *Client) FetchPage(ctx context.Context, agency, endpoint string, params url.Values) (json.RawMessage, error) {
	raw, err := c.getJSON(ctx, fmt.Sprintf("/get/%s/%s/json", agency, endpoint), params)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", agency, endpoint, err)
	}

	return raw, nil
}
