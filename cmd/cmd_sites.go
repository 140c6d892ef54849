// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/mapping"
	"github.com/supplymri/supplymri/sites"
	"github.com/supplymri/supplymri/spatial"
)

var sitesOptions = struct {
	DbPath   string
	Addr     string
	Method   string
	Near     []float64
	WithinKm float64
}{}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Browse the mine sites stored by locate --db",
}

func openSites() (*sql.DB, sites.Repository, error) {
	if _, err := os.Stat(sitesOptions.DbPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("database not found at %s - run 'locate --db %s' first", sitesOptions.DbPath, sitesOptions.DbPath)
	}

	db, err := sql.Open("duckdb", sitesOptions.DbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := sites.NewRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, repo, nil
}

var sitesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the stored sites",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := openSites()
		if err != nil {
			return err
		}
		defer db.Close()

		list, err := repo.ListSites(sites.Filter{Method: sitesOptions.Method})
		if err != nil {
			return err
		}

		if len(sitesOptions.Near) > 0 {
			list, err = sitesNear(list, sitesOptions.Near, sitesOptions.WithinKm)
			if err != nil {
				return err
			}
		}

		a, b, c := strings.Repeat("─", 4), strings.Repeat("─", 30), strings.Repeat("─", 22)
		fmt.Printf("╭─%4s─┬─%-30s─┬─%-22s─┬─%-11s╮\n", a, b, c, strings.Repeat("─", 11))
		fmt.Printf("│ %4s │ %-30s │ %-22s │ %-11s│\n", "Id", "Project", "Point", "Method")
		fmt.Printf("├─%4s─┼─%-30s─┼─%-22s─┼─%-11s┤\n", a, b, c, strings.Repeat("─", 11))

		for _, s := range list {
			point := fmt.Sprintf("%.4f, %.4f", s.Point.Lat, s.Point.Lng)
			fmt.Printf("│ %4d │ %-30.30s │ %-22s │ %-11s│\n", s.ID, s.Project, point, s.Method)
		}

		fmt.Printf("╰─%4s─┴─%-30s─┴─%-22s─┴─%-11s╯\n", a, b, c, strings.Repeat("─", 11))

		return nil
	},
}

// sitesNear keeps the sites within km of the lat,lng pair in near.
func sitesNear(list []*sites.Site, near []float64, km float64) ([]*sites.Site, error) {
	if len(near) != 2 {
		return nil, fmt.Errorf("--near expects lat,lng (got %v)", near)
	}

	center := spatial.Point{Lat: near[0], Lng: near[1]}
	if err := spatial.ValidateCoordinates(center.Lat, center.Lng); err != nil {
		return nil, err
	}

	ret := make([]*sites.Site, 0, len(list))

	for _, s := range list {
		if s.Point.HaversineKm(&center) <= km {
			ret = append(ret, s)
		}
	}

	return ret, nil
}

var sitesServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the site review web server (local only)",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repo, err := openSites()
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := repo.CountSites()
		if err != nil {
			return err
		}

		fmt.Printf("Serving %d sites on http://%s\n", count, sitesOptions.Addr)

		return sites.NewServer(repo, mapping.MapOptions{}).Run(sitesOptions.Addr)
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
	sitesCmd.AddCommand(sitesListCmd)
	sitesCmd.AddCommand(sitesServeCmd)

	sitesCmd.PersistentFlags().StringVar(&sitesOptions.DbPath, "db", "data/supplymri.duckdb", "DuckDB file holding the sites")
	sitesListCmd.Flags().Float64SliceVar(&sitesOptions.Near, "near", nil, "Only list sites close to lat,lng")
	sitesListCmd.Flags().Float64Var(&sitesOptions.WithinKm, "within-km", 75, "Radius used by --near")
	sitesListCmd.Flags().StringVar(&sitesOptions.Method, "method", "", "Only list sites resolved by this method (direct_text, gazetteer)")
	sitesServeCmd.Flags().StringVar(&sitesOptions.Addr, "addr", sites.DefaultAddr, "Listen address")
}
