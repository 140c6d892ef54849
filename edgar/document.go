// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var displayCIK = regexp.MustCompile(`\s+\(CIK \d{10}\)$`)

// Document is a single filing document as returned by full-text search. It
// is also the content of the ".metadata.json" sidecar stored next to every
// download.
//
// Fields are declared in key order so the sidecar keys come out sorted.
type Document struct {
	Adsh            string     `json:"adsh"`
	BizLocations    stringList `json:"biz_locations"`
	BizStates       stringList `json:"biz_states"`
	CIK             string     `json:"cik"`
	CIKs            stringList `json:"ciks"`
	CompanyNames    stringList `json:"company_names"`
	FileDate        string     `json:"file_date"`
	FileDescription string     `json:"file_description"`
	FileName        string     `json:"file_name"`
	FileNumbers     stringList `json:"file_numbers"`
	FileType        string     `json:"file_type"`
	FilmNumbers     stringList `json:"film_numbers"`
	Form            string     `json:"form"`
	IncStates       stringList `json:"inc_states"`
	Items           stringList `json:"items"`
	PeriodEnding    string     `json:"period_ending"`
	RootForms       stringList `json:"root_forms"`
	Score           *float64   `json:"score"`
	URL             string     `json:"url"`
}

// BaseName is the last element of FileName.
func (d *Document) BaseName() string {
	return path.Base(d.FileName)
}

// AccessionDir is the accession number without dashes, as used in archive
// paths.
func (d *Document) AccessionDir() string {
	return strings.ReplaceAll(d.Adsh, "-", "")
}

// stringList accepts a JSON list, a single scalar or null. It always
// marshals as a list.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*l = stringList{}
	case []any:
		out := make(stringList, 0, len(v))

		for _, item := range v {
			if item == nil {
				continue
			}

			out = append(out, scalarString(item))
		}

		*l = out
	default:
		*l = stringList{scalarString(v)}
	}

	return nil
}

func (l stringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}

	return json.Marshal([]string(l))
}

// First returns the first element or "".
func (l stringList) First() string {
	if len(l) == 0 {
		return ""
	}

	return l[0]
}

// scalarString renders JSON scalars the way they appear in the source,
// without exponent notation for numbers.
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// searchResponse is the subset of the full-text search response we use.
type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	ID     string       `json:"_id"`
	Score  *float64     `json:"_score"`
	Source searchSource `json:"_source"`
}

type searchSource struct {
	Adsh            string     `json:"adsh"`
	CIKs            stringList `json:"ciks"`
	DisplayNames    stringList `json:"display_names"`
	Form            string     `json:"form"`
	RootForms       stringList `json:"root_forms"`
	FileType        string     `json:"file_type"`
	FileDescription string     `json:"file_description"`
	FileDate        string     `json:"file_date"`
	PeriodEnding    string     `json:"period_ending"`
	FileNum         stringList `json:"file_num"`
	FilmNum         stringList `json:"film_num"`
	Items           stringList `json:"items"`
	BizStates       stringList `json:"biz_states"`
	BizLocations    stringList `json:"biz_locations"`
	IncStates       stringList `json:"inc_states"`
}

// toDocument maps a search hit to a Document. archives is the base URL of
// the document archive.
func (h *searchHit) toDocument(archives string) Document {
	src := &h.Source

	adsh, fileName, found := strings.Cut(h.ID, ":")
	if !found {
		adsh, fileName = src.Adsh, h.ID
	}

	ciks := src.CIKs
	if ciks == nil {
		ciks = stringList{}
	}

	primary := ciks.First()

	// path CIKs have no leading zeros
	pathCIK := strings.TrimSpace(primary)
	if n, err := strconv.ParseInt(pathCIK, 10, 64); err == nil {
		pathCIK = strconv.FormatInt(n, 10)
	}

	cik := primary
	if cik == "" {
		cik = pathCIK
	}

	names := make(stringList, 0, len(src.DisplayNames))
	for _, name := range src.DisplayNames {
		names = append(names, strings.TrimSpace(displayCIK.ReplaceAllString(name, "")))
	}

	return Document{
		Adsh:            adsh,
		FileName:        fileName,
		CIK:             cik,
		CIKs:            ciks,
		CompanyNames:    names,
		Form:            src.Form,
		RootForms:       orEmpty(src.RootForms),
		FileType:        src.FileType,
		FileDescription: src.FileDescription,
		FileDate:        src.FileDate,
		PeriodEnding:    src.PeriodEnding,
		FileNumbers:     orEmpty(src.FileNum),
		FilmNumbers:     orEmpty(src.FilmNum),
		Items:           orEmpty(src.Items),
		BizStates:       orEmpty(src.BizStates),
		BizLocations:    orEmpty(src.BizLocations),
		IncStates:       orEmpty(src.IncStates),
		URL: fmt.Sprintf("%s/%s/%s/%s",
			strings.TrimRight(archives, "/"), pathCIK, strings.ReplaceAll(adsh, "-", ""), fileName),
		Score: h.Score,
	}
}

func orEmpty(l stringList) stringList {
	if l == nil {
		return stringList{}
	}

	return l
}
