// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package mapping

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/supplymri/supplymri/spatial"
)

//go:embed templates/*.html
var templates embed.FS

var mapTemplate = template.Must(template.ParseFS(templates, "templates/map.html"))

// Map defaults.
const (
	DefaultTileURL       = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution   = "&copy; OpenStreetMap contributors"
	DefaultZoom          = 4
	DefaultClusterRadius = 1000.0 // meters
	DefaultTitle         = "Mine sites"
)

// MapOptions controls the HTML map.
type MapOptions struct {
	Title       string
	TileURL     string
	Attribution string
	Zoom        int

	// Center of the initial view; the mean of all points when nil
	Center *spatial.Point

	// Records closer than this many meters share a marker
	ClusterRadius float64
}

func (o MapOptions) withDefaults() MapOptions {
	if o.Title == "" {
		o.Title = DefaultTitle
	}

	if o.TileURL == "" {
		o.TileURL = DefaultTileURL
	}

	if o.Attribution == "" {
		o.Attribution = DefaultAttribution
	}

	if o.Zoom <= 0 {
		o.Zoom = DefaultZoom
	}

	if o.ClusterRadius <= 0 {
		o.ClusterRadius = DefaultClusterRadius
	}

	return o
}

// marker is what the page script draws.
type marker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Count int     `json:"count"`
	Popup string  `json:"popup"`
}

type mapPage struct {
	Title       string
	TileURL     string
	Attribution string
	Zoom        int
	Center      spatial.Point
	Markers     []marker
}

// popup key order; remaining keys follow alphabetically.
var popupOrder = []string{"company", "project", "jurisdiction", "confidence", "score", "method", "source", "hints"}

func popupKeys(record map[string]any) []string {
	var keys, rest []string

	for _, k := range popupOrder {
		if _, ok := record[k]; ok {
			keys = append(keys, k)
		}
	}

	for k := range record {
		if k != LatitudeKey && k != LongitudeKey && !slices.Contains(popupOrder, k) {
			rest = append(rest, k)
		}
	}

	slices.Sort(rest)

	return append(keys, rest...)
}

func popupHTML(record map[string]any) string {
	keys := popupKeys(record)
	lines := make([]string, 0, len(keys))

	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("<strong>%s</strong>: %s",
			template.HTMLEscapeString(k),
			template.HTMLEscapeString(fmt.Sprint(record[k]))))
	}

	return strings.Join(lines, "<br>")
}

type located struct {
	point  spatial.Point
	record map[string]any
}

func buildPage(records []map[string]any, opts MapOptions) (*mapPage, error) {
	opts = opts.withDefaults()

	items := make([]located, 0, len(records))
	points := make([]spatial.Point, 0, len(records))

	for i, record := range records {
		p, err := recordPoint(record)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		items = append(items, located{point: p, record: record})
		points = append(points, p)
	}

	center := spatial.Centroid(points)
	if opts.Center != nil {
		center = *opts.Center
	}

	clusters := spatial.Cluster(items, func(l located) spatial.Point { return l.point }, opts.ClusterRadius)
	markers := make([]marker, 0, len(clusters))

	for _, cluster := range clusters {
		clusterPoints := make([]spatial.Point, 0, len(cluster))
		popups := make([]string, 0, len(cluster))

		for _, l := range cluster {
			clusterPoints = append(clusterPoints, l.point)
			popups = append(popups, popupHTML(l.record))
		}

		c := spatial.Centroid(clusterPoints)
		markers = append(markers, marker{
			Lat:   c.Lat,
			Lng:   c.Lng,
			Count: len(cluster),
			Popup: strings.Join(popups, "<hr>"),
		})
	}

	return &mapPage{
		Title:       opts.Title,
		TileURL:     opts.TileURL,
		Attribution: opts.Attribution,
		Zoom:        opts.Zoom,
		Center:      center,
		Markers:     markers,
	}, nil
}

// RenderHTMLMap writes a Leaflet page showing records to w.
func RenderHTMLMap(w io.Writer, records []map[string]any, opts MapOptions) error {
	page, err := buildPage(records, opts)
	if err != nil {
		return err
	}

	if err := mapTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("rendering map: %w", err)
	}

	return nil
}

// ExportHTMLMap writes the map of records to path and returns path. Nothing
// is written, and "" is returned, when there are no records.
func ExportHTMLMap(records []map[string]any, path string, opts MapOptions) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	if err := RenderHTMLMap(&buf, records, opts); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("creating parent directory: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	return path, nil
}
