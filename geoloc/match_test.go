// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package geoloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplymri/supplymri/spatial"
)

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Silver Peak Mine":          "silver peak mine",
		"  Cerro   Verde (Phase-2) ": "cerro verde phase-2",
		"Québec Lithium, Inc.":      "quebec lithium inc",
		"":                          "",
		"***":                       "",
	}

	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), "NormalizeName(%q)", in)
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 0.0, Similarity("", "abc"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", ""), 1e-9)
	assert.InDelta(t, 1.0, Similarity("silver peak", "silver peak"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)

	s := Similarity("silver peak project", "silver peak mine")
	assert.GreaterOrEqual(t, s, MatchThreshold)
	assert.LessOrEqual(t, s, 1.0)

	assert.Less(t, Similarity("completely unrelated site", "silver peak mine"), MatchThreshold)
}

func silverPeak() []GazetteerEntry {
	return []GazetteerEntry{
		{
			Name:         "Silver Peak Mine",
			Point:        spatial.Point{Lat: 37.75, Lng: -117.63},
			Jurisdiction: "Nevada, USA",
			Source:       "usgs",
		},
	}
}

func TestMatch(t *testing.T) {
	entries := silverPeak()

	got := Match("Silver Peak Project", "", nil, entries)
	require.NotNil(t, got)
	assert.GreaterOrEqual(t, got.Score, MatchThreshold)
	assert.Equal(t, ConfidenceMatchedGazetteer, got.Confidence)
	assert.Equal(t, MethodGazetteer, got.Method)
	assert.Equal(t, "usgs", got.Source)
	assert.Equal(t, entries[0].Point, got.Point)
	assert.Same(t, &entries[0], got.Candidate)

	assert.Nil(t, Match("Completely Unrelated Site", "", nil, entries))
	assert.Nil(t, Match("Silver Peak Project", "", nil, nil))
}

func TestMatchJurisdiction(t *testing.T) {
	entries := silverPeak()

	assert.Nil(t, Match("Silver Peak Project", "Ontario", nil, entries))
	assert.NotNil(t, Match("Silver Peak Project", "", nil, entries))
	assert.NotNil(t, Match("Silver Peak Project", "NEVADA", nil, entries))

	entries[0].Jurisdiction = ""
	assert.NotNil(t, Match("Silver Peak Project", "Ontario", nil, entries),
		"entries without jurisdiction are not filtered")
}

func TestMatchAliasesAndHints(t *testing.T) {
	entries := []GazetteerEntry{
		{Name: "Mina Escondida", Aliases: []string{"Escondida Copper Mine"}, Point: spatial.Point{Lat: -24.27, Lng: -69.07}},
	}

	got := Match("Escondida Copper Project", "", nil, entries)
	require.NotNil(t, got, "alias is matched")

	got = Match("Annual Report", "", []string{"Mina Escondida"}, entries)
	require.NotNil(t, got, "hint is matched")
	assert.InDelta(t, 1.0, got.Score, 1e-9)
}

func TestMatchBestAndTies(t *testing.T) {
	entries := []GazetteerEntry{
		{Name: "Silver Peak Mine", Point: spatial.Point{Lat: 1, Lng: 1}},
		{Name: "Silver Peak Project", Point: spatial.Point{Lat: 2, Lng: 2}},
		{Name: "Silver Peak Project", Point: spatial.Point{Lat: 3, Lng: 3}},
	}

	got := Match("Silver Peak Project", "", nil, entries)
	require.NotNil(t, got)
	assert.InDelta(t, 1.0, got.Score, 1e-9)
	assert.Equal(t, spatial.Point{Lat: 2, Lng: 2}, got.Point, "first of equal scores wins")
}

func TestGazetteerResolver(t *testing.T) {
	var r Resolver = NewGazetteer(silverPeak())

	got := r.Resolve("Silver Peak Project", "Nevada", nil)
	require.NotNil(t, got)
	assert.Equal(t, "Silver Peak Mine", got.Candidate.Name)
}
