// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds the geographic primitives shared by the resolvers,
// exporters and the sites repository.
package spatial

import (
	"errors"
	"fmt"
	"math"
)

const earthRadius = 6371e3 // meters

// ErrOutOfRange is returned when a coordinate falls outside the WGS84 ranges.
var ErrOutOfRange = errors.New("coordinate out of range")

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether lat is within [-90, 90] and lng within [-180, 180].
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// ValidateCoordinates verifies that the coordinates are valid.
func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 || math.IsNaN(lat) {
		return fmt.Errorf("%w: latitude must be between -90 and 90 (got %f)", ErrOutOfRange, lat)
	}

	if lng < -180 || lng > 180 || math.IsNaN(lng) {
		return fmt.Errorf("%w: longitude must be between -180 and 180 (got %f)", ErrOutOfRange, lng)
	}

	return nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// HaversineKm is HaversineDistance expressed in kilometers.
func (p *Point) HaversineKm(other *Point) float64 {
	return p.HaversineDistance(other) / 1000
}

// Centroid returns the arithmetic mean of the points. The zero Point is
// returned for an empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}

	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}

	n := float64(len(points))

	return Point{Lat: lat / n, Lng: lng / n}
}
