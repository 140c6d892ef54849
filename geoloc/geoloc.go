// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package geoloc resolves mining projects to coordinates. Coordinates are
// either read directly from the filing text or obtained by fuzzy matching the
// project name against a gazetteer of known mine locations.
package geoloc

import (
	"github.com/supplymri/supplymri/spatial"
)

// Confidence labels of a ResolvedCoordinate.
const (
	ConfidenceDirectCoordinate = "direct_coordinate"
	ConfidenceMatchedGazetteer = "matched_gazetteer"
)

// Methods that produced a ResolvedCoordinate.
const (
	MethodDirectText = "direct_text"
	MethodGazetteer  = "gazetteer"
)

// GazetteerEntry is a named place with a known location.
type GazetteerEntry struct {
	Name         string        `json:"name"`
	Point        spatial.Point `json:"point"`
	Aliases      []string      `json:"aliases,omitempty"`
	Jurisdiction string        `json:"jurisdiction,omitempty"`
	Source       string        `json:"source,omitempty"`
}

// ResolvedCoordinate is the outcome of a successful resolution.
type ResolvedCoordinate struct {
	Point      spatial.Point `json:"point"`
	Confidence string        `json:"confidence"`
	Score      float64       `json:"score"`
	Method     string        `json:"method"`
	Source     string        `json:"source,omitempty"`

	// Candidate is the matched gazetteer entry, nil for direct coordinates.
	Candidate *GazetteerEntry `json:"candidate,omitempty"`
}

// IsDirect reports whether the coordinate was read from the text itself.
func (r *ResolvedCoordinate) IsDirect() bool {
	return r != nil && r.Method == MethodDirectText
}

// Resolver resolves a project to a coordinate.
type Resolver interface {
	// Resolve returns nil when no location can be found.
	Resolve(name, jurisdiction string, hints []string) *ResolvedCoordinate
}

// Gazetteer is a Resolver backed by a loaded list of entries.
type Gazetteer struct {
	entries []GazetteerEntry
}

// NewGazetteer wraps entries. The slice must not be modified afterwards.
func NewGazetteer(entries []GazetteerEntry) *Gazetteer {
	return &Gazetteer{entries: entries}
}

// OpenGazetteer loads the gazetteer stored at path.
func OpenGazetteer(path string) (*Gazetteer, error) {
	entries, err := LoadGazetteer(path)
	if err != nil {
		return nil, err
	}

	return NewGazetteer(entries), nil
}

// Entries returns the loaded entries.
func (g *Gazetteer) Entries() []GazetteerEntry {
	return g.entries
}

// Len returns the number of entries.
func (g *Gazetteer) Len() int {
	return len(g.entries)
}

// Resolve implements Resolver.
func (g *Gazetteer) Resolve(name, jurisdiction string, hints []string) *ResolvedCoordinate {
	return Match(name, jurisdiction, hints, g.entries)
}
