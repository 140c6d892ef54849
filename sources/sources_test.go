// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowResult(t *testing.T) {
	r := &WorkflowResult{Source: EDGAR, SavedPaths: []string{"a"}}
	extended := r.Extend("b", "c")

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 3, extended.Count())
	assert.Equal(t, []string{"a", "b", "c"}, extended.SavedPaths)
	assert.Equal(t, "edgar: saved 3 file(s)", extended.String())
}

func TestResolveDestination(t *testing.T) {
	got, err := ResolveDestination(MSHA, "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, filepath.Join("data", "msha"), filepath.Join(filepath.Base(filepath.Dir(got)), filepath.Base(got)))

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err = ResolveDestination(EDGAR, "~/filings")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "filings"), got)
}
