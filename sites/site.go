// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package sites persists resolved mine sites in DuckDB and serves them for
// review.
package sites

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supplymri/supplymri/edgar"
	"github.com/supplymri/supplymri/spatial"
)

// ErrUnresolved is returned when converting a project without coordinates.
var ErrUnresolved = errors.New("project has no resolved coordinates")

// Site is a resolved mine project.
type Site struct {
	ID           int64         `json:"id"`
	Company      string        `json:"company"`
	Project      string        `json:"project"`
	Jurisdiction string        `json:"jurisdiction"`
	Point        spatial.Point `json:"point"`
	Confidence   string        `json:"confidence" validate:"oneof=direct_coordinate matched_gazetteer"`
	Score        float64       `json:"score" validate:"gte=0,lte=1"`
	Method       string        `json:"method" validate:"oneof=direct_text gazetteer"`
	Source       string        `json:"source,omitempty"`
	Hints        string        `json:"hints,omitempty"`
	DocumentPath string        `json:"document_path" validate:"required"`
	MetadataPath string        `json:"metadata_path"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`

	H3 spatial.H3Cells `json:"-"`
}

// FromProject converts a resolved project.
func FromProject(p *edgar.Project) (*Site, error) {
	if p.Resolved == nil {
		return nil, fmt.Errorf("%s: %w", p.DocumentPath, ErrUnresolved)
	}

	site := &Site{
		Company:      p.Company,
		Project:      p.Name,
		Jurisdiction: p.Jurisdiction,
		Point:        p.Resolved.Point,
		Confidence:   p.Resolved.Confidence,
		Score:        p.Resolved.Score,
		Method:       p.Resolved.Method,
		Source:       p.Resolved.Source,
		DocumentPath: p.DocumentPath,
		MetadataPath: p.MetadataPath,
	}

	if len(p.Hints) > 0 {
		site.Hints = strings.Join(p.Hints[:min(3, len(p.Hints))], "; ")
	}

	return site, nil
}

// Record flattens the site the same way edgar.Project.Record does, so it can
// be handed to the mapping exporters.
func (s *Site) Record() map[string]any {
	record := map[string]any{
		"id":            s.ID,
		"company":       s.Company,
		"project":       s.Project,
		"jurisdiction":  s.Jurisdiction,
		"latitude":      s.Point.Lat,
		"longitude":     s.Point.Lng,
		"confidence":    s.Confidence,
		"score":         s.Score,
		"method":        s.Method,
		"metadata_path": s.MetadataPath,
		"document_path": s.DocumentPath,
	}

	if s.Source != "" {
		record["source"] = s.Source
	}

	if s.Hints != "" {
		record["hints"] = s.Hints
	}

	return record
}

// Records flattens every site.
func Records(sites []*Site) []map[string]any {
	ret := make([]map[string]any, 0, len(sites))
	for _, s := range sites {
		ret = append(ret, s.Record())
	}

	return ret
}
