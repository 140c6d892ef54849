// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplymri/supplymri/sites"
	"github.com/supplymri/supplymri/spatial"
)

func TestSitesNear(t *testing.T) {
	list := []*sites.Site{
		{Project: "Elko", Point: spatial.Point{Lat: 40.8324, Lng: -115.7631}},
		{Project: "Reno", Point: spatial.Point{Lat: 39.5296, Lng: -119.8138}},
	}

	got, err := sitesNear(list, []float64{40.8, -115.7}, 75)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Elko", got[0].Project)

	got, err = sitesNear(list, []float64{40.8, -115.7}, 500)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = sitesNear(list, []float64{40.8}, 75)
	require.Error(t, err)

	_, err = sitesNear(list, []float64{95, 0}, 75)
	require.ErrorIs(t, err, spatial.ErrOutOfRange)
}
