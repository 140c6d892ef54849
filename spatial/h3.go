// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// MaxH3Resolution is the finest H3 resolution indexed for each site.
const MaxH3Resolution = 8

// H3Cells holds the H3 cell of a point at resolutions 1..MaxH3Resolution.
// Index 0 is resolution 1.
type H3Cells [MaxH3Resolution]int64

// Res returns the cell at the given resolution, or 0 when out of range.
func (c H3Cells) Res(res int) int64 {
	if res < 1 || res > MaxH3Resolution {
		return 0
	}

	return c[res-1]
}

// ComputeH3 returns the H3 cells containing p.
func ComputeH3(p Point) (H3Cells, error) {
	var ret H3Cells

	if err := ValidateCoordinates(p.Lat, p.Lng); err != nil {
		return ret, err
	}

	latLng := h3.NewLatLng(p.Lat, p.Lng)
	for res := 1; res <= MaxH3Resolution; res++ {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return ret, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
		}

		ret[res-1] = int64(cell)
	}

	return ret, nil
}
