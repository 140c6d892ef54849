// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package geoloc

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/supplymri/supplymri/spatial"
)

// lat, optional N/S, lon, optional E/W. The latitude must start a number and
// be separated from the longitude by a hemisphere letter or a separator, so
// "200, 200" does not split into 20 and 0.
var coordinatePattern = regexp.MustCompile(
	`(?i)(?:^|[^\d.+-])([+-]?\d{1,2}(?:\.\d+)?)(?:[\s°,;]*([NS])[\s°,;]*|[\s°,;]+)([+-]?\d{1,3}(?:\.\d+)?)(?:[\s°]*([EW]))?`)

// DefaultMaxHints is the number of hints kept per document.
const DefaultMaxHints = 10

// hintWindow is the number of runes kept on each side of a keyword.
const hintWindow = 80

// locationKeywords are scanned in this order.
var locationKeywords = []string{
	"project",
	"mine",
	"deposit",
	"property",
	"operation",
	"complex",
	"concession",
	"shaft",
	"pit",
	"district",
}

// ExtractCoordinates returns every latitude/longitude pair found in text, in
// order of appearance. A hemisphere letter overrides the literal sign of the
// number. Pairs out of range are dropped.
func ExtractCoordinates(text string) []spatial.Point {
	var points []spatial.Point

	for _, idx := range coordinatePattern.FindAllStringSubmatchIndex(text, -1) {
		// longitude cut out of a longer number
		if end := idx[7]; end < len(text) && (isDigit(text[end]) || text[end] == '.') {
			continue
		}

		m := submatches(text, idx)

		lat, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}

		lng, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}

		switch strings.ToUpper(m[2]) {
		case "N":
			lat = math.Abs(lat)
		case "S":
			lat = -math.Abs(lat)
		}

		switch strings.ToUpper(m[4]) {
		case "E":
			lng = math.Abs(lng)
		case "W":
			lng = -math.Abs(lng)
		}

		if spatial.ValidateCoordinates(lat, lng) != nil {
			continue
		}

		points = append(points, spatial.Point{Lat: lat, Lng: lng})
	}

	return points
}

func submatches(text string, idx []int) []string {
	m := make([]string, len(idx)/2)

	for i := range m {
		if idx[2*i] >= 0 {
			m[i] = text[idx[2*i]:idx[2*i+1]]
		}
	}

	return m
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// CoordinateFromText resolves text to its first coordinate pair, or nil when
// there is none. No attempt is made to pick the "best" pair.
func CoordinateFromText(text string) *ResolvedCoordinate {
	points := ExtractCoordinates(text)
	if len(points) == 0 {
		return nil
	}

	return &ResolvedCoordinate{
		Point:      points[0],
		Confidence: ConfidenceDirectCoordinate,
		Score:      1.0,
		Method:     MethodDirectText,
	}
}

// ExtractLocationHints harvests the text surrounding mining keywords
// ("project", "mine", "deposit"…). Snippets are grouped by keyword and then by
// position, deduplicated, and capped at maxHints (DefaultMaxHints when <= 0).
func ExtractLocationHints(text string, maxHints int) []string {
	if maxHints <= 0 {
		maxHints = DefaultMaxHints
	}

	runes := []rune(text)

	// per rune lowering keeps indexes aligned with runes
	lowered := make([]rune, len(runes))
	for i, r := range runes {
		lowered[i] = unicode.ToLower(r)
	}

	var hints []string

	seen := make(map[string]bool)

	for _, keyword := range locationKeywords {
		kw := []rune(keyword)

		for i := indexRunes(lowered, kw, 0); i != -1; i = indexRunes(lowered, kw, i+len(kw)) {
			start := max(0, i-hintWindow)
			end := min(len(runes), i+hintWindow)

			snippet := strings.TrimSpace(string(runes[start:end]))
			if seen[snippet] {
				continue
			}

			seen[snippet] = true
			hints = append(hints, snippet)

			if len(hints) >= maxHints {
				return hints
			}
		}
	}

	return hints
}

// indexRunes returns the index of the first occurrence of needle in haystack
// at or after from, or -1.
func indexRunes(haystack, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		match := true

		for j, r := range needle {
			if haystack[i+j] != r {
				match = false

				break
			}
		}

		if match {
			return i
		}
	}

	return -1
}
