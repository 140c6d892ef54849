// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplymri/supplymri/edgar"
	"github.com/supplymri/supplymri/geoloc"
	"github.com/supplymri/supplymri/sites"
	"github.com/supplymri/supplymri/spatial"
)

func TestStoreSites(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "sites.duckdb")
	projects := []*edgar.Project{
		{
			DocumentPath: "/x/a.htm",
			Name:         "Red Rock Project",
			Resolved: &geoloc.ResolvedCoordinate{
				Point:      spatial.Point{Lat: 51.2, Lng: -114.3},
				Confidence: geoloc.ConfidenceDirectCoordinate,
				Score:      1,
				Method:     geoloc.MethodDirectText,
			},
		},
		{DocumentPath: "/x/b.htm", Name: "Nowhere Project"},
	}

	n, err := storeSites(dbPath, projects)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// storing again updates in place
	n, err = storeSites(dbPath, projects)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	db, err := sql.Open("duckdb", dbPath)
	require.NoError(t, err)
	defer db.Close()

	count, err := sites.NewRepository(db).CountSites()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
