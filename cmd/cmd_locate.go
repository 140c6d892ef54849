// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/edgar"
	"github.com/supplymri/supplymri/geoloc"
	"github.com/supplymri/supplymri/mapping"
	"github.com/supplymri/supplymri/sites"
	"github.com/supplymri/supplymri/utils/validation"
)

var errNothingResolved = errors.New("no projects with resolved coordinates were found")

type locateOptions struct {
	EdgarRoot     string `validate:"required"`
	Gazetteer     string
	Limit         int    `validate:"gte=0"`
	GeoJSONOutput string `validate:"required"`
	HTMLOutput    string
	Zoom          int    `validate:"gte=0,lte=19"`
	DbPath        string
}

var locateOpts = &locateOptions{}

// storeSites persists every resolved project in the DuckDB file at dbPath.
func storeSites(dbPath string, projects []*edgar.Project) (int, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return 0, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	repo := sites.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		return 0, fmt.Errorf("creating schema: %w", err)
	}

	batch := make([]*sites.Site, 0, len(projects))

	for _, p := range projects {
		site, err := sites.FromProject(p)
		if errors.Is(err, sites.ErrUnresolved) {
			continue
		} else if err != nil {
			return 0, err
		}

		batch = append(batch, site)
	}

	if err := repo.SaveSites(batch); err != nil {
		return 0, fmt.Errorf("saving sites: %w", err)
	}

	return len(batch), nil
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Resolve mine coordinates from downloaded EDGAR exhibits",
	Long: `Scans the downloaded EDGAR documents, infers one mining project per
document and resolves its coordinates, first from the document text and then
from an optional gazetteer (CSV, JSON or GeoJSON). Resolved projects are
exported as GeoJSON and as an interactive HTML map.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := validation.Struct(locateOpts); err != nil {
			return err
		}

		if _, err := os.Stat(locateOpts.EdgarRoot); err != nil {
			return fmt.Errorf("EDGAR directory %s does not exist: %w", locateOpts.EdgarRoot, err)
		}

		projects, err := edgar.BuildProjects(locateOpts.EdgarRoot, locateOpts.Limit)
		if err != nil {
			return err
		}

		log.Printf("Built %d projects from %s", len(projects), locateOpts.EdgarRoot)

		if locateOpts.Gazetteer != "" {
			gazetteer, err := geoloc.OpenGazetteer(locateOpts.Gazetteer)
			if err != nil {
				return fmt.Errorf("loading gazetteer: %w", err)
			}

			matched := edgar.ResolveWithGazetteer(projects, gazetteer)
			log.Printf("Matched %d projects against %d gazetteer entries", matched, gazetteer.Len())
		}

		records := make([]map[string]any, 0, len(projects))

		for _, p := range projects {
			record := p.Record()
			if record == nil {
				log.Printf("[warn] Unable to resolve coordinates for %s", p.Name)

				continue
			}

			records = append(records, record)
		}

		if len(records) == 0 {
			return errNothingResolved
		}

		geojsonPath, err := mapping.ExportGeoJSON(records, locateOpts.GeoJSONOutput)
		if err != nil {
			return err
		}

		fmt.Printf("GeoJSON saved to %s\n", geojsonPath)

		if locateOpts.HTMLOutput != "" {
			htmlPath, err := mapping.ExportHTMLMap(records, locateOpts.HTMLOutput, mapping.MapOptions{
				Zoom: locateOpts.Zoom,
			})

			switch {
			case err != nil:
				log.Printf("[warn] Skipped HTML map generation: %s", err)
			case htmlPath != "":
				fmt.Printf("Interactive map saved to %s\n", htmlPath)
			}
		}

		if locateOpts.DbPath != "" {
			n, err := storeSites(locateOpts.DbPath, projects)
			if err != nil {
				return err
			}

			log.Printf("Stored %d sites in %s", n, locateOpts.DbPath)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)

	flags := locateCmd.Flags()
	flags.StringVar(&locateOpts.EdgarRoot, "edgar-root", "data/edgar", "Directory containing downloaded EDGAR filings")
	flags.StringVar(&locateOpts.Gazetteer, "gazetteer", "", "Optional CSV/JSON/GeoJSON gazetteer with mine coordinates")
	flags.IntVar(&locateOpts.Limit, "limit", 5, "Maximum number of exhibits to process (0 for all)")
	flags.StringVar(&locateOpts.GeoJSONOutput, "geojson-output", "data/edgar/mine_sites.geojson", "Path of the GeoJSON file")
	flags.StringVar(&locateOpts.HTMLOutput, "html-output", "data/edgar/mine_sites.html", "Path of the HTML map (empty to skip)")
	flags.IntVar(&locateOpts.Zoom, "zoom", mapping.DefaultZoom, "Initial zoom of the HTML map")
	flags.StringVar(&locateOpts.DbPath, "db", "", "Also store the resolved sites in this DuckDB file")
}
