// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package geoloc

import (
	"regexp"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/supplymri/supplymri/utils/textutils"
)

// MatchThreshold is the minimum similarity for a gazetteer entry to match.
const MatchThreshold = 0.65

var nonNameChars = regexp.MustCompile(`[^A-Za-z0-9\s-]`)

// NormalizeName folds accents, replaces punctuation with spaces, collapses
// whitespace and lower-cases s.
func NormalizeName(s string) string {
	s = textutils.LowerASCIIFolding(s)
	s = nonNameChars.ReplaceAllString(s, " ")

	return strings.ToLower(textutils.CollapseSpaces(s))
}

// Similarity scores two normalized names in [0, 1]. It averages the
// SequenceMatcher ratio of both strings with the best of token overlap and
// length ratio. Strings without any common character score 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)

	// A full SequenceMatcher ratio, not len(match)/max(len): a short project
	// name inside a long gazetteer name scores lower here, and unrelated
	// names score 0 instead of a length ratio.
	fuzzy := difflib.NewMatcher(runeStrings(ra), runeStrings(rb)).Ratio()
	if fuzzy == 0 {
		return 0
	}

	tokensA := strings.Fields(a)
	tokensB := make(map[string]bool)

	for _, tok := range strings.Fields(b) {
		tokensB[tok] = true
	}

	shared := 0
	counted := make(map[string]bool)

	for _, tok := range tokensA {
		if tokensB[tok] && !counted[tok] {
			counted[tok] = true
			shared++
		}
	}

	ratio := float64(shared) / float64(max(len(tokensA), 1))

	shorter, longer := len(ra), len(rb)
	if shorter > longer {
		shorter, longer = longer, shorter
	}

	ratio = max(ratio, float64(shorter)/float64(longer))

	return (ratio + fuzzy) / 2
}

func runeStrings(runes []rune) []string {
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}

	return out
}

// Match returns the gazetteer entry that best matches the project name or any
// of its hints, or nil when nothing scores at least MatchThreshold.
//
// When jurisdiction is given, entries with a jurisdiction of their own must
// contain it (after normalization). Entries without a jurisdiction are always
// eligible. On equal scores the earliest entry wins.
func Match(name, jurisdiction string, hints []string, entries []GazetteerEntry) *ResolvedCoordinate {
	if len(entries) == 0 {
		return nil
	}

	var terms []string

	for _, term := range append([]string{name}, hints...) {
		if term == "" {
			continue
		}

		if n := NormalizeName(term); n != "" {
			terms = append(terms, n)
		}
	}

	wantJurisdiction := NormalizeName(jurisdiction)

	var best *ResolvedCoordinate

	for i := range entries {
		entry := &entries[i]

		score := entryScore(terms, entry)
		if score < MatchThreshold {
			continue
		}

		if wantJurisdiction != "" {
			coverage := NormalizeName(entry.Jurisdiction)
			if coverage != "" && !strings.Contains(coverage, wantJurisdiction) {
				continue
			}
		}

		if best == nil || score > best.Score {
			best = &ResolvedCoordinate{
				Point:      entry.Point,
				Confidence: ConfidenceMatchedGazetteer,
				Score:      score,
				Method:     MethodGazetteer,
				Source:     entry.Source,
				Candidate:  entry,
			}
		}
	}

	return best
}

// entryScore is the best similarity between any term and the entry name or
// aliases.
func entryScore(terms []string, entry *GazetteerEntry) float64 {
	targets := make([]string, 0, 1+len(entry.Aliases))
	targets = append(targets, NormalizeName(entry.Name))

	for _, alias := range entry.Aliases {
		targets = append(targets, NormalizeName(alias))
	}

	var score float64

	for _, term := range terms {
		for _, target := range targets {
			score = max(score, Similarity(term, target))
		}
	}

	return score
}
