// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package sites

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/supplymri/supplymri/spatial"
	"github.com/supplymri/supplymri/utils/validation"
)

// ErrNotFound is returned when a site does not exist.
var ErrNotFound = errors.New("site not found")

// Filter narrows ListSites. Zero values match everything.
type Filter struct {
	Company string
	Method  string
	Limit   int
	Offset  int
}

// Repository handles persistence of mine sites.
type Repository interface {
	// CreateSchema creates the mine_sites table
	CreateSchema() error

	// SaveSite inserts the site, or updates the one stored for the same document
	SaveSite(site *Site) error

	// SaveSites saves every site in one transaction
	SaveSites(sites []*Site) error

	// GetSite returns the site with the given id
	GetSite(id int64) (*Site, error)

	// ListSites returns sites ordered by company and project
	ListSites(filter Filter) ([]*Site, error)

	// SitesInCell returns the sites inside an H3 cell
	SitesInCell(res int, cell int64) ([]*Site, error)

	// CountSites returns the total number of sites
	CountSites() (int, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlSiteRepository struct {
	db *sql.DB
}

// NewRepository creates a DuckDB backed repository.
func NewRepository(db *sql.DB) Repository {
	return &sqlSiteRepository{db: db}
}

func (r *sqlSiteRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlSiteRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS mine_sites_seq START 1;

		CREATE TABLE IF NOT EXISTS mine_sites (
			id BIGINT PRIMARY KEY DEFAULT nextval('mine_sites_seq'),
			company VARCHAR NOT NULL,
			project VARCHAR NOT NULL,
			jurisdiction VARCHAR NOT NULL,
			lat DOUBLE NOT NULL,
			lng DOUBLE NOT NULL,
			confidence VARCHAR NOT NULL,
			score DOUBLE NOT NULL,
			method VARCHAR NOT NULL,
			source VARCHAR NOT NULL,
			hints VARCHAR NOT NULL,
			document_path VARCHAR NOT NULL UNIQUE,
			metadata_path VARCHAR NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			h3_res1 BIGINT,
			h3_res2 BIGINT,
			h3_res3 BIGINT,
			h3_res4 BIGINT,
			h3_res5 BIGINT,
			h3_res6 BIGINT,
			h3_res7 BIGINT,
			h3_res8 BIGINT
		);
	`)

	return err
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func saveSite(q execer, site *Site) error {
	if err := spatial.ValidateCoordinates(site.Point.Lat, site.Point.Lng); err != nil {
		return fmt.Errorf("%s: %w", site.DocumentPath, err)
	}

	if err := validation.Struct(site); err != nil {
		return fmt.Errorf("%s: %w", site.DocumentPath, err)
	}

	cells, err := spatial.ComputeH3(site.Point)
	if err != nil {
		return err
	}

	site.H3 = cells
	site.UpdatedAt = time.Now().UTC()

	var id int64

	var createdAt time.Time

	err = q.QueryRow(`SELECT id, created_at FROM mine_sites WHERE document_path = ?`, site.DocumentPath).
		Scan(&id, &createdAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		site.CreatedAt = site.UpdatedAt

		return q.QueryRow(`
			INSERT INTO mine_sites(
				company, project, jurisdiction, lat, lng,
				confidence, score, method, source, hints,
				document_path, metadata_path, created_at, updated_at,
				h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
			)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`,
			site.Company, site.Project, site.Jurisdiction, site.Point.Lat, site.Point.Lng,
			site.Confidence, site.Score, site.Method, site.Source, site.Hints,
			site.DocumentPath, site.MetadataPath, site.CreatedAt, site.UpdatedAt,
			cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], cells[6], cells[7],
		).Scan(&site.ID)
	case err != nil:
		return err
	}

	site.ID = id
	site.CreatedAt = createdAt

	_, err = q.Exec(`
		UPDATE mine_sites
		SET company = ?, project = ?, jurisdiction = ?, lat = ?, lng = ?,
		    confidence = ?, score = ?, method = ?, source = ?, hints = ?,
		    metadata_path = ?, updated_at = ?,
		    h3_res1 = ?, h3_res2 = ?, h3_res3 = ?, h3_res4 = ?, h3_res5 = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?
		WHERE id = ?
	`,
		site.Company, site.Project, site.Jurisdiction, site.Point.Lat, site.Point.Lng,
		site.Confidence, site.Score, site.Method, site.Source, site.Hints,
		site.MetadataPath, site.UpdatedAt,
		cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], cells[6], cells[7],
		site.ID,
	)

	return err
}

func (r *sqlSiteRepository) SaveSite(site *Site) error {
	return saveSite(r.db, site)
}

func (r *sqlSiteRepository) SaveSites(sites []*Site) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	for _, site := range sites {
		if err := saveSite(tx, site); err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = errors.Join(err, rErr)
			}

			return err
		}
	}

	return tx.Commit()
}

var baseSelect = `
	SELECT id, company, project, jurisdiction, lat, lng,
	       confidence, score, method, source, hints,
	       document_path, metadata_path, created_at, updated_at,
	       h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
	FROM mine_sites
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (*Site, error) {
	site := &Site{}

	var h3 [spatial.MaxH3Resolution]sql.NullInt64

	err := row.Scan(
		&site.ID, &site.Company, &site.Project, &site.Jurisdiction,
		&site.Point.Lat, &site.Point.Lng,
		&site.Confidence, &site.Score, &site.Method, &site.Source, &site.Hints,
		&site.DocumentPath, &site.MetadataPath, &site.CreatedAt, &site.UpdatedAt,
		&h3[0], &h3[1], &h3[2], &h3[3], &h3[4], &h3[5], &h3[6], &h3[7],
	)
	if err != nil {
		return nil, err
	}

	for i, cell := range h3 {
		if cell.Valid {
			site.H3[i] = cell.Int64
		}
	}

	return site, nil
}

func (r *sqlSiteRepository) list(query string, args []any) ([]*Site, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*Site

	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}

		sites = append(sites, site)
	}

	return sites, rows.Err()
}

func (r *sqlSiteRepository) GetSite(id int64) (*Site, error) {
	site, err := scanSite(r.db.QueryRow(baseSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return site, err
}

func (r *sqlSiteRepository) ListSites(filter Filter) ([]*Site, error) {
	query := baseSelect + " WHERE 1 = 1"
	args := []any{}

	if filter.Company != "" {
		query += " AND company ILIKE ?"

		args = append(args, "%"+filter.Company+"%")
	}

	if filter.Method != "" {
		query += " AND method = ?"

		args = append(args, filter.Method)
	}

	query += " ORDER BY company, project, id"

	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"

		args = append(args, filter.Limit, filter.Offset)
	}

	return r.list(query, args)
}

func (r *sqlSiteRepository) SitesInCell(res int, cell int64) ([]*Site, error) {
	if res < 1 || res > spatial.MaxH3Resolution {
		return nil, fmt.Errorf("h3 resolution must be between 1 and %d (got %d)", spatial.MaxH3Resolution, res)
	}

	// column name comes from the validated resolution
	query := fmt.Sprintf("%s WHERE h3_res%d = ? ORDER BY company, project, id", baseSelect, res)

	return r.list(query, []any{cell})
}

func (r *sqlSiteRepository) CountSites() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM mine_sites").Scan(&count)

	return count, err
}
