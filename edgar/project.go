// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/supplymri/supplymri/geoloc"
	"github.com/supplymri/supplymri/utils/htmlutils"
)

// UnknownCompany is used when the sidecar names no filer.
const UnknownCompany = "Unknown Company"

// ErrSkippedDocument is returned by LoadProject for a document BuildProjects
// would skip.
var ErrSkippedDocument = errors.New("document skipped")

// Project is a mining project inferred from a downloaded document.
type Project struct {
	MetadataPath string                     `json:"metadata_path"`
	DocumentPath string                     `json:"document_path"`
	Company      string                     `json:"company"`
	Name         string                     `json:"project"`
	Jurisdiction string                     `json:"jurisdiction"`
	Hints        []string                   `json:"hints"`
	Resolved     *geoloc.ResolvedCoordinate `json:"resolved"`
}

var (
	projectNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-Z][A-Za-z0-9\s\-]+ Project)`),
		regexp.MustCompile(`([A-Z][A-Za-z0-9\s\-]+ Mine)`),
		regexp.MustCompile(`([A-Z][A-Za-z0-9\s\-]+ Property)`),
	}

	// technical report headings
	headingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`([A-Z][A-Za-z0-9\s\-]+ (?:Project|Mine|Deposit|Property))`),
	}

	jurisdictionOfPattern = regexp.MustCompile(`(?:State|Department|Province|Region) of ([A-Za-z\s]+)`)
	placePattern          = regexp.MustCompile(`([A-Z][A-Za-z\s]+?,\s*[A-Z][A-Za-z\s]+)`)

	technicalReportMarkers = []string{"EX", "TRS", "TECHNICAL"}
)

// sidecar is a lenient view of the metadata file: it is read back from disk
// and may come from other tools.
type sidecar struct {
	FileName        string     `json:"file_name"`
	FileDescription string     `json:"file_description"`
	FileType        string     `json:"file_type"`
	CompanyNames    stringList `json:"company_names"`
	CIK             stringList `json:"cik"`
	CIKs            stringList `json:"ciks"`
	IncStates       stringList `json:"inc_states"`
	BizLocations    stringList `json:"biz_locations"`
}

func firstMatch(text string, patterns []*regexp.Regexp) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	return ""
}

// inferCompany returns the first company name, else the raw CIK.
func inferCompany(meta *sidecar) string {
	switch {
	case meta.CompanyNames.First() != "":
		return meta.CompanyNames.First()
	case meta.CIK.First() != "":
		return meta.CIK.First()
	case meta.CIKs.First() != "":
		return meta.CIKs.First()
	default:
		return UnknownCompany
	}
}

// inferProjectName looks for "<Capitalized words> Project|Mine|Property" in
// the text, then for technical report headings, and finally falls back to the
// file name.
func inferProjectName(meta *sidecar, text string) string {
	if name := firstMatch(text, projectNamePatterns); name != "" {
		return name
	}

	description := meta.FileDescription
	if description == "" {
		description = meta.FileType
	}

	upper := strings.ToUpper(description)
	if slices.ContainsFunc(technicalReportMarkers, func(m string) bool { return strings.Contains(upper, m) }) {
		if name := firstMatch(text, headingPatterns); name != "" {
			return name
		}
	}

	fileName := meta.FileName
	if fileName == "" {
		fileName = meta.FileDescription
	}

	if fileName == "" {
		return ""
	}

	base := path.Base(filepath.ToSlash(fileName))

	return strings.TrimSuffix(base, path.Ext(base))
}

// inferJurisdiction prefers the metadata, then "State of X", then
// "Place, Region".
func inferJurisdiction(meta *sidecar, text string) string {
	if s := meta.IncStates.First(); s != "" {
		return s
	}

	if s := meta.BizLocations.First(); s != "" {
		return s
	}

	if m := jurisdictionOfPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	if m := placePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}

	return ""
}

// findSidecars returns every sidecar below root in path order.
func findSidecars(root string) ([]string, error) {
	var paths []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() && strings.HasSuffix(d.Name(), MetadataSuffix) {
			paths = append(paths, p)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	slices.Sort(paths)

	return paths, nil
}

// buildProject returns nil, nil when the pair must be skipped.
func buildProject(metadataPath string) (*Project, error) {
	data, err := os.ReadFile(filepath.Clean(metadataPath))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", metadataPath, err)
	}

	var meta sidecar
	if err := json.Unmarshal(data, &meta); err != nil {
		log.Printf("Skipping %s: malformed metadata: %s", metadataPath, err)

		return nil, nil
	}

	documentPath := strings.TrimSuffix(metadataPath, MetadataSuffix)

	f, err := os.Open(filepath.Clean(documentPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	} else if err != nil {
		log.Printf("Skipping %s: %s", documentPath, err)

		return nil, nil
	}

	text, err := htmlutils.HTMLToText(f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}

	if err != nil {
		log.Printf("Skipping %s: %s", documentPath, err)

		return nil, nil
	}

	return &Project{
		MetadataPath: metadataPath,
		DocumentPath: documentPath,
		Company:      inferCompany(&meta),
		Name:         inferProjectName(&meta, text),
		Jurisdiction: inferJurisdiction(&meta, text),
		Hints:        geoloc.ExtractLocationHints(text, geoloc.DefaultMaxHints),
		Resolved:     geoloc.CoordinateFromText(text),
	}, nil
}

// LoadProject infers the project of a single downloaded document. path may
// name the document or its sidecar.
func LoadProject(path string) (*Project, error) {
	if !strings.HasSuffix(path, MetadataSuffix) {
		path += MetadataSuffix
	}

	project, err := buildProject(path)
	if err != nil {
		return nil, err
	}

	if project == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrSkippedDocument)
	}

	return project, nil
}

// BuildProjects scans root for downloaded documents with a sidecar and infers
// one project per document. limit > 0 caps the number of projects.
// Documents with a malformed sidecar, or whose document file is missing, are
// skipped.
func BuildProjects(root string, limit int) ([]*Project, error) {
	paths, err := findSidecars(root)
	if err != nil {
		return nil, err
	}

	projects := make([]*Project, 0, len(paths))
	n := len(paths)

	for i, p := range paths {
		project, err := buildProject(p)
		if err != nil {
			log.Printf("[%d/%d] Skipping %s: %s", i+1, n, p, err)

			continue
		}

		if project == nil {
			continue
		}

		projects = append(projects, project)

		if limit > 0 && len(projects) >= limit {
			break
		}
	}

	return projects, nil
}

// ResolveWithGazetteer resolves projects that have no coordinate read from
// their own text. Projects with a direct coordinate are never touched.
// It returns the number of projects that got a gazetteer match.
func ResolveWithGazetteer(projects []*Project, resolver geoloc.Resolver) int {
	if resolver == nil {
		return 0
	}

	var matched int

	for _, p := range projects {
		if p.Resolved.IsDirect() {
			continue
		}

		if r := resolver.Resolve(p.Name, p.Jurisdiction, p.Hints); r != nil {
			p.Resolved = r
			matched++
		}
	}

	return matched
}

// Record flattens a resolved project into the map consumed by the
// exporters, or nil when the project is unresolved.
func (p *Project) Record() map[string]any {
	if p.Resolved == nil {
		return nil
	}

	record := map[string]any{
		"company":       p.Company,
		"project":       p.Name,
		"jurisdiction":  p.Jurisdiction,
		"latitude":      p.Resolved.Point.Lat,
		"longitude":     p.Resolved.Point.Lng,
		"confidence":    p.Resolved.Confidence,
		"score":         p.Resolved.Score,
		"method":        p.Resolved.Method,
		"metadata_path": p.MetadataPath,
		"document_path": p.DocumentPath,
	}

	if p.Resolved.Source != "" {
		record["source"] = p.Resolved.Source
	}

	if len(p.Hints) > 0 {
		record["hints"] = strings.Join(p.Hints[:min(3, len(p.Hints))], "; ")
	}

	return record
}
