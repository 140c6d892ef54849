// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package geoloc

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/supplymri/supplymri/spatial"
)

// ErrUnsupportedGazetteer is returned for JSON documents that are neither a
// list of entries nor a FeatureCollection.
var ErrUnsupportedGazetteer = errors.New("unsupported gazetteer document")

var aliasSeparator = regexp.MustCompile(`[;|,]`)

// LoadGazetteer reads a gazetteer file. ".json" and ".geojson" files hold
// either a list of {name, latitude, longitude, aliases, jurisdiction, source}
// objects or a GeoJSON FeatureCollection; anything else is read as CSV with a
// header row. Malformed entries are skipped.
func LoadGazetteer(path string) ([]GazetteerEntry, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("reading gazetteer: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".geojson":
		entries, err := parseJSONGazetteer(data)
		if err != nil {
			return nil, fmt.Errorf("parsing gazetteer %s: %w", path, err)
		}

		return entries, nil
	default:
		entries, err := parseCSVGazetteer(bytes.NewReader(data), filepath.Base(path))
		if err != nil {
			return nil, fmt.Errorf("parsing gazetteer %s: %w", path, err)
		}

		return entries, nil
	}
}

// aliasList accepts either a JSON list or a delimited string.
type aliasList []string

func (a *aliasList) UnmarshalJSON(data []byte) error {
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		out := make([]string, 0, len(list))

		for _, v := range list {
			if v == nil {
				continue
			}

			out = append(out, fmt.Sprint(v))
		}

		*a = out

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("aliases must be a list or a string: %w", err)
	}

	*a = splitAliases(s)

	return nil
}

// splitAliases splits on ';', '|' or ',' dropping empty parts.
func splitAliases(s string) []string {
	var out []string

	for _, part := range aliasSeparator.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// flexFloat accepts JSON numbers as well as numeric strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)

		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("not a number: %s", data)
	}

	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %w", err)
	}

	*f = flexFloat(n)

	return nil
}

type jsonEntry struct {
	Name         *string    `json:"name"`
	Latitude     *flexFloat `json:"latitude"`
	Longitude    *flexFloat `json:"longitude"`
	Aliases      aliasList  `json:"aliases"`
	Jurisdiction string     `json:"jurisdiction"`
	Source       string     `json:"source"`
}

type geoJSONFeature struct {
	Geometry *struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties *struct {
		Name         string    `json:"name"`
		Title        string    `json:"title"`
		Aliases      aliasList `json:"aliases"`
		Jurisdiction string    `json:"jurisdiction"`
		Source       string    `json:"source"`
	} `json:"properties"`
}

func parseJSONGazetteer(data []byte) ([]GazetteerEntry, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}

		return parseJSONList(items), nil
	}

	var collection struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}

	if err := json.Unmarshal(data, &collection); err != nil {
		return nil, err
	}

	if collection.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedGazetteer, collection.Type)
	}

	return parseFeatures(collection.Features), nil
}

func parseJSONList(items []json.RawMessage) []GazetteerEntry {
	entries := make([]GazetteerEntry, 0, len(items))

	for _, raw := range items {
		var item jsonEntry
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}

		if item.Name == nil || item.Latitude == nil || item.Longitude == nil {
			continue
		}

		lat, lng := float64(*item.Latitude), float64(*item.Longitude)
		if spatial.ValidateCoordinates(lat, lng) != nil {
			continue
		}

		entries = append(entries, GazetteerEntry{
			Name:         *item.Name,
			Point:        spatial.Point{Lat: lat, Lng: lng},
			Aliases:      item.Aliases,
			Jurisdiction: item.Jurisdiction,
			Source:       item.Source,
		})
	}

	return entries
}

func parseFeatures(features []json.RawMessage) []GazetteerEntry {
	entries := make([]GazetteerEntry, 0, len(features))

	for _, raw := range features {
		var feature geoJSONFeature
		if err := json.Unmarshal(raw, &feature); err != nil {
			continue
		}

		if feature.Geometry == nil || len(feature.Geometry.Coordinates) < 2 {
			continue
		}

		// GeoJSON positions are [lon, lat]
		lng, lat := feature.Geometry.Coordinates[0], feature.Geometry.Coordinates[1]
		if spatial.ValidateCoordinates(lat, lng) != nil {
			continue
		}

		entry := GazetteerEntry{
			Name:   "Unnamed Mine",
			Point:  spatial.Point{Lat: lat, Lng: lng},
			Source: "geojson",
		}

		if p := feature.Properties; p != nil {
			switch {
			case p.Name != "":
				entry.Name = p.Name
			case p.Title != "":
				entry.Name = p.Title
			}

			if p.Source != "" {
				entry.Source = p.Source
			}

			entry.Aliases = p.Aliases
			entry.Jurisdiction = p.Jurisdiction
		}

		entries = append(entries, entry)
	}

	return entries
}

func parseCSVGazetteer(r io.Reader, defaultSource string) ([]GazetteerEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []GazetteerEntry{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	columns := make(map[string]int, len(header))

	for i, name := range header {
		name = strings.TrimPrefix(name, "\ufeff")
		columns[strings.TrimSpace(name)] = i
	}

	field := func(record []string, name string) (string, bool) {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return "", false
		}

		return record[i], true
	}

	entries := []GazetteerEntry{}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		} else if err != nil {
			return nil, err
		}

		name, ok := field(record, "name")
		if !ok {
			continue
		}

		latStr, _ := field(record, "latitude")
		lngStr, _ := field(record, "longitude")

		lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
		if err != nil {
			continue
		}

		lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
		if err != nil {
			continue
		}

		if spatial.ValidateCoordinates(lat, lng) != nil {
			continue
		}

		aliases, _ := field(record, "aliases")
		jurisdiction, _ := field(record, "jurisdiction")

		source, _ := field(record, "source")
		if source == "" {
			source = defaultSource
		}

		entries = append(entries, GazetteerEntry{
			Name:         name,
			Point:        spatial.Point{Lat: lat, Lng: lng},
			Aliases:      splitAliases(aliases),
			Jurisdiction: jurisdiction,
			Source:       source,
		})
	}

	return entries, nil
}
