// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"slices"
	"strconv"
	"strings"
)

const (
	// DefaultSearchLimit is used when SearchQuery.Limit is not positive.
	DefaultSearchLimit = 20

	// searchPageSize is the number of hits of a full page.
	searchPageSize = 100
)

// SearchQuery describes a full-text search.
type SearchQuery struct {
	// Full-text search term, e.g. "S-K 1300"
	Query string

	// Maximum number of documents to return
	Limit int

	// Form types (10-K, 8-K, EX-96…)
	Forms []string

	// Case-insensitive substring required in the file description, type or
	// extension
	DescriptionFilter string

	// Starting offset within the search results
	Start int

	// EDGAR dateRange filter (all, 10d, 1m, custom…). Defaults to "all"
	DateRange string
}

// SearchMetrics tracks statistics during the search phase.
type SearchMetrics struct {
	SearchPages    int // number of pages traversed
	SearchHits     int // number of hits received
	SearchAccepted int // number of hits that passed the filters
}

// Merge combines two SearchMetrics objects.
func (f *SearchMetrics) Merge(o *SearchMetrics) *SearchMetrics {
	f.SearchPages += o.SearchPages
	f.SearchHits += o.SearchHits
	f.SearchAccepted += o.SearchAccepted

	return f
}

// normalizeForms upper-cases, deduplicates and sorts form types.
func normalizeForms(forms []string) string {
	var out []string

	for _, f := range forms {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}

	slices.Sort(out)

	return strings.Join(out, ",")
}

// matchesDescription applies SearchQuery.DescriptionFilter. filter must be
// lower case.
func matchesDescription(doc *Document, filter string) bool {
	if filter == "" {
		return true
	}

	var parts []string

	for _, p := range []string{doc.FileDescription, doc.FileType, path.Ext(doc.FileName)} {
		if p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Contains(strings.ToLower(strings.Join(parts, " ")), filter)
}

// Search queries full-text search, following pages of 100 hits until the
// limit is reached or a short page is returned.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]Document, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	dateRange := q.DateRange
	if dateRange == "" {
		dateRange = "all"
	}

	filter := strings.ToLower(q.DescriptionFilter)
	forms := normalizeForms(q.Forms)
	offset := max(q.Start, 0)

	var results []Document

	for len(results) < limit {
		params := url.Values{
			"q":         {q.Query},
			"dateRange": {dateRange},
			"category":  {"custom"},
			"from":      {strconv.Itoa(offset)},
		}
		if forms != "" {
			params.Set("forms", forms)
		}

		log.Printf("Search - Retrieving results from offset %d", offset)

		var payload searchResponse
		if err := c.getJSON(ctx, c.options.SearchURL, params, &payload); err != nil {
			return results, fmt.Errorf("searching %q from %d: %w", q.Query, offset, err)
		}

		hits := payload.Hits.Hits
		metrics := SearchMetrics{SearchPages: 1, SearchHits: len(hits)}

		if len(hits) == 0 {
			c.Metrics.SearchMetrics.Merge(&metrics)

			break
		}

		for i := range hits {
			doc := hits[i].toDocument(c.options.ArchivesURL)
			if !matchesDescription(&doc, filter) {
				continue
			}

			results = append(results, doc)
			metrics.SearchAccepted++

			if len(results) >= limit {
				break
			}
		}

		c.Metrics.SearchMetrics.Merge(&metrics)

		log.Printf(
			"Search - Page %d stats - %d accepted from a total of %d hits",
			c.Metrics.SearchPages,
			metrics.SearchAccepted,
			metrics.SearchHits,
		)

		offset += len(hits)
		if len(hits) < searchPageSize {
			break
		}
	}

	return results, nil
}
