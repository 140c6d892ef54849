// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	got, err := parseFilter(`{"mine_id": "0100003"}`, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"mine_id": "0100003"}, got)

	file := filepath.Join(t.TempDir(), "filter.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"state": "NV"}`), 0o600))

	got, err = parseFilter("", file)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"state": "NV"}, got)

	got, err = parseFilter("", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseFilter_Errors(t *testing.T) {
	_, err := parseFilter(`{}`, "filter.json")
	require.ErrorIs(t, err, errConflictingFilters)

	_, err = parseFilter(`{not json`, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--filter-json")

	_, err = parseFilter("", filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseParams(t *testing.T) {
	got, err := parseParams([]string{"fields=mine_id,state", " sort = asc", "q=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"fields": "mine_id,state",
		"sort":   " asc",
		"q":      "a=b",
	}, got)

	for _, bad := range []string{"novalue", "=x", "  =x"} {
		_, err := parseParams([]string{bad})
		require.ErrorIs(t, err, errInvalidParam, bad)
	}
}
