// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package msha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplymri/supplymri/utils/httputils"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("", nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = NewClient("   ", nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)

	c, err := NewClient("key", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.options.BaseURL)
	assert.Equal(t, DefaultThrottle, c.options.Throttle)
}

func TestClientHeadersAndPaths(t *testing.T) {
	var (
		gotPath   string
		gotQuery  url.Values
		gotHeader http.Header
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fields": []}`))
	}))
	defer server.Close()

	c, err := NewClient("secret", &ClientOptions{BaseURL: server.URL + "/v4/", UserAgent: "tester/1.0"})
	require.NoError(t, err)

	raw, err := c.FetchMetadata(context.Background(), "MSHA", "Mines")
	require.NoError(t, err)
	assert.JSONEq(t, `{"fields": []}`, string(raw))
	assert.Equal(t, "/v4/get/MSHA/Mines/json/metadata", gotPath)
	assert.Equal(t, "secret", gotHeader.Get("X-API-KEY"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.Equal(t, "tester/1.0", gotHeader.Get("User-Agent"))

	_, err = c.FetchPage(context.Background(), "MSHA", "Mines", url.Values{"limit": {"5"}})
	require.NoError(t, err)
	assert.Equal(t, "/v4/get/MSHA/Mines/json", gotPath)
	assert.Equal(t, "5", gotQuery.Get("limit"))
}

func TestClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/get/MSHA/Html/json":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html>login</html>"))
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	c, err := NewClient("k", &ClientOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = c.FetchPage(context.Background(), "MSHA", "Html", nil)
	require.ErrorIs(t, err, httputils.ErrUnexpectedContentType)

	_, err = c.FetchPage(context.Background(), "MSHA", "Mines", nil)

	var statusErr *httputils.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}
