// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supplymri/supplymri/geoloc"
	"github.com/supplymri/supplymri/spatial"
)

// writePair stores a document and, unless metadata is empty, its sidecar.
func writePair(t *testing.T, root, rel, document, metadata string) string {
	t.Helper()

	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))

	if document != "" {
		require.NoError(t, os.WriteFile(path, []byte(document), 0o600))
	}

	if metadata != "" {
		require.NoError(t, os.WriteFile(path+MetadataSuffix, []byte(metadata), 0o600))
	}

	return path
}

func TestBuildProjectsEndToEnd(t *testing.T) {
	root := t.TempDir()
	doc := writePair(t, root, "0001/000124000001/ex96.htm",
		`<html><body><h1>Red Rock Project</h1><p>Coordinates: 51.2N 114.3W</p></body></html>`,
		`{"company_names": ["Red Rock Resources"], "file_name": "ex96.htm", "inc_states": ["AB"]}`)

	projects, err := BuildProjects(root, 0)
	require.NoError(t, err)
	require.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "Red Rock Resources", p.Company)
	assert.Equal(t, "Red Rock Project", p.Name)
	assert.Equal(t, "AB", p.Jurisdiction)
	assert.Equal(t, doc, p.DocumentPath)
	assert.Equal(t, doc+MetadataSuffix, p.MetadataPath)
	assert.NotEmpty(t, p.Hints)

	require.NotNil(t, p.Resolved)
	assert.Equal(t, geoloc.MethodDirectText, p.Resolved.Method)
	assert.Equal(t, geoloc.ConfidenceDirectCoordinate, p.Resolved.Confidence)
	assert.InDelta(t, 51.2, p.Resolved.Point.Lat, 1e-9)
	assert.InDelta(t, -114.3, p.Resolved.Point.Lng, 1e-9)
}

func TestBuildProjectsSkipsAndOrder(t *testing.T) {
	root := t.TempDir()

	writePair(t, root, "b/doc.htm", "<p>Beta Mine</p>", `{"cik": "0000000002"}`)
	writePair(t, root, "a/doc.htm", "<p>Alpha Property</p>", `{"ciks": ["0000000001"]}`)
	writePair(t, root, "c/doc.htm", "<p>Broken</p>", `{not json`)
	writePair(t, root, "d/doc.htm", "", `{"company_names": ["Orphan"]}`)
	writePair(t, root, "e/doc.htm", "<p>No sidecar Project</p>", "")

	projects, err := BuildProjects(root, 0)
	require.NoError(t, err)
	require.Len(t, projects, 2)

	assert.Equal(t, "Alpha Property", projects[0].Name)
	assert.Equal(t, "0000000001", projects[0].Company)
	assert.Equal(t, "Beta Mine", projects[1].Name)
	assert.Equal(t, "0000000002", projects[1].Company)
	assert.Nil(t, projects[0].Resolved)

	limited, err := BuildProjects(root, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestInferProjectName(t *testing.T) {
	tests := []struct {
		name string
		meta sidecar
		text string
		want string
	}{
		{
			name: "project wins over mine",
			text: "The Copper Mine is part of the Big Hill Project.",
			want: "The Copper Mine is part of the Big Hill Project",
		},
		{
			name: "mine",
			text: "operations at the Eagle Mine. Other text",
			want: "Eagle Mine",
		},
		{
			name: "deposit heading for technical reports",
			meta: sidecar{FileDescription: "Technical Report Summary"},
			text: "summary of the Lone Tree Deposit. more",
			want: "Lone Tree Deposit",
		},
		{
			name: "deposit ignored for other documents",
			meta: sidecar{FileDescription: "Press release", FileName: "pr-2024.htm"},
			text: "summary of the Lone Tree Deposit. more",
			want: "pr-2024",
		},
		{
			name: "file description as last resort",
			meta: sidecar{FileDescription: "annual.txt"},
			text: "nothing capitalized here",
			want: "annual",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferProjectName(&tt.meta, tt.text))
		})
	}
}

func TestInferJurisdiction(t *testing.T) {
	assert.Equal(t, "NV", inferJurisdiction(&sidecar{IncStates: stringList{"NV"}, BizLocations: stringList{"Reno, NV"}}, ""))
	assert.Equal(t, "Reno, NV", inferJurisdiction(&sidecar{BizLocations: stringList{"Reno, NV"}}, ""))
	assert.Equal(t, "Antioquia", inferJurisdiction(&sidecar{}, "located in the Department of Antioquia."))
	assert.Equal(t, "Elko, Nevada", inferJurisdiction(&sidecar{}, "offices in Elko, Nevada."))
	assert.Empty(t, inferJurisdiction(&sidecar{}, "nothing here"))
}

func TestInferCompany(t *testing.T) {
	assert.Equal(t, "Acme", inferCompany(&sidecar{CompanyNames: stringList{"Acme"}, CIK: stringList{"1"}}))
	assert.Equal(t, "1", inferCompany(&sidecar{CIK: stringList{"1", "2"}}))
	assert.Equal(t, "3", inferCompany(&sidecar{CIKs: stringList{"3"}}))
	assert.Equal(t, UnknownCompany, inferCompany(&sidecar{}))
}

// fixedResolver always returns the same coordinate.
type fixedResolver struct {
	calls int
}

func (r *fixedResolver) Resolve(_, _ string, _ []string) *geoloc.ResolvedCoordinate {
	r.calls++

	return &geoloc.ResolvedCoordinate{
		Point:      spatial.Point{Lat: 1, Lng: 2},
		Confidence: geoloc.ConfidenceMatchedGazetteer,
		Score:      0.9,
		Method:     geoloc.MethodGazetteer,
	}
}

func TestResolveWithGazetteerKeepsDirect(t *testing.T) {
	direct := &geoloc.ResolvedCoordinate{
		Point:      spatial.Point{Lat: 51.2, Lng: -114.3},
		Confidence: geoloc.ConfidenceDirectCoordinate,
		Score:      1,
		Method:     geoloc.MethodDirectText,
	}

	projects := []*Project{
		{Name: "Red Rock Project", Resolved: direct},
		{Name: "Silver Peak Project"},
	}

	resolver := &fixedResolver{}
	matched := ResolveWithGazetteer(projects, resolver)

	assert.Equal(t, 1, matched)
	assert.Equal(t, 1, resolver.calls)
	assert.Same(t, direct, projects[0].Resolved)
	require.NotNil(t, projects[1].Resolved)
	assert.Equal(t, geoloc.MethodGazetteer, projects[1].Resolved.Method)

	assert.Zero(t, ResolveWithGazetteer(projects, nil))
}

func TestResolveWithGazetteerMatch(t *testing.T) {
	root := t.TempDir()
	writePair(t, root, "x/doc.htm", "<p>Silver Peak Project</p><p>drilling continued.</p>",
		`{"company_names": ["Pure Energy"], "biz_locations": ["Nevada"]}`)

	projects, err := BuildProjects(root, 0)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Nil(t, projects[0].Resolved)

	gazetteer := geoloc.NewGazetteer([]geoloc.GazetteerEntry{
		{Name: "Silver Peak Mine", Point: spatial.Point{Lat: 37.75, Lng: -117.63}, Jurisdiction: "Nevada, USA", Source: "usgs"},
	})

	assert.Equal(t, 1, ResolveWithGazetteer(projects, gazetteer))
	require.NotNil(t, projects[0].Resolved)
	assert.Equal(t, "usgs", projects[0].Resolved.Source)
}

func TestProjectRecord(t *testing.T) {
	p := &Project{
		MetadataPath: "m.json",
		DocumentPath: "d.htm",
		Company:      "Acme",
		Name:         "Big Hill Project",
		Hints:        []string{"one", "two", "three", "four"},
	}
	assert.Nil(t, p.Record())

	p.Resolved = &geoloc.ResolvedCoordinate{
		Point:      spatial.Point{Lat: 10, Lng: 20},
		Confidence: geoloc.ConfidenceMatchedGazetteer,
		Score:      0.8,
		Method:     geoloc.MethodGazetteer,
		Source:     "usgs",
	}

	record := p.Record()
	assert.Equal(t, map[string]any{
		"company":       "Acme",
		"project":       "Big Hill Project",
		"jurisdiction":  "",
		"latitude":      10.0,
		"longitude":     20.0,
		"confidence":    geoloc.ConfidenceMatchedGazetteer,
		"score":         0.8,
		"method":        geoloc.MethodGazetteer,
		"metadata_path": "m.json",
		"document_path": "d.htm",
		"source":        "usgs",
		"hints":         "one; two; three",
	}, record)
}

func TestLoadProject(t *testing.T) {
	root := t.TempDir()
	doc := writePair(t, root, "1/a/ex96.htm",
		`<p>Red Rock Project</p><p>Coordinates: 51.2N 114.3W</p>`,
		`{"company_names": ["Red Rock Resources"]}`)

	byDocument, err := LoadProject(doc)
	require.NoError(t, err)
	assert.Equal(t, "Red Rock Project", byDocument.Name)

	bySidecar, err := LoadProject(doc + MetadataSuffix)
	require.NoError(t, err)
	assert.Equal(t, byDocument, bySidecar)

	missing := writePair(t, root, "1/b/ex96.htm", "", `{"company_names": ["X"]}`)
	_, err = LoadProject(missing)
	require.ErrorIs(t, err, ErrSkippedDocument)

	_, err = LoadProject(filepath.Join(root, "nope.htm"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
