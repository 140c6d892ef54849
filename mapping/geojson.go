// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapping exports resolved records as GeoJSON and as an interactive
// HTML map. A record is a flat map that must hold "latitude" and "longitude";
// every other key becomes a property.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/supplymri/supplymri/spatial"
)

// Coordinate keys of a record.
const (
	LatitudeKey  = "latitude"
	LongitudeKey = "longitude"
)

// ErrMissingCoordinates is returned for records without latitude/longitude.
var ErrMissingCoordinates = errors.New("record missing latitude/longitude keys")

// Geometry is a GeoJSON Point.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

// Feature is a GeoJSON Feature.
type Feature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Geometry   Geometry       `json:"geometry"`
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	default:
		return 0, fmt.Errorf("unsupported coordinate type %T", v)
	}
}

// recordPoint returns the coordinates of record.
func recordPoint(record map[string]any) (spatial.Point, error) {
	rawLat, okLat := record[LatitudeKey]
	rawLng, okLng := record[LongitudeKey]

	if !okLat || !okLng || rawLat == nil || rawLng == nil {
		return spatial.Point{}, ErrMissingCoordinates
	}

	lat, err := toFloat(rawLat)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("latitude: %w", err)
	}

	lng, err := toFloat(rawLng)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("longitude: %w", err)
	}

	return spatial.Point{Lat: lat, Lng: lng}, nil
}

// BuildFeature converts a record into a Point feature.
func BuildFeature(record map[string]any) (*Feature, error) {
	p, err := recordPoint(record)
	if err != nil {
		return nil, err
	}

	properties := make(map[string]any, len(record))

	for k, v := range record {
		if k != LatitudeKey && k != LongitudeKey {
			properties[k] = v
		}
	}

	return &Feature{
		Type:       "Feature",
		Properties: properties,
		Geometry: Geometry{
			Type:        "Point",
			Coordinates: [2]float64{p.Lng, p.Lat},
		},
	}, nil
}

// BuildFeatureCollection converts every record.
func BuildFeatureCollection(records []map[string]any) (*FeatureCollection, error) {
	features := make([]Feature, 0, len(records))

	for i, record := range records {
		f, err := BuildFeature(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		features = append(features, *f)
	}

	return &FeatureCollection{Type: "FeatureCollection", Features: features}, nil
}

// ExportGeoJSON writes records as an indented FeatureCollection to path,
// creating parent directories, and returns path.
func ExportGeoJSON(records []map[string]any, path string) (string, error) {
	fc, err := BuildFeatureCollection(records)
	if err != nil {
		return "", err
	}

	output, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}

	if err := os.WriteFile(path, output, 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}
