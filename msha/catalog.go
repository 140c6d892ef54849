// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package msha

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	errMultipleMatches  = errors.New("multiple matches")
	errEndpointNotFound = errors.New("endpoint not found")
)

// Endpoint is a row of the DOL agency/endpoint catalog.
type Endpoint struct {
	Agency   string            // agency abbreviation, e.g. MSHA
	Endpoint string            // dataset endpoint, e.g. Mines
	Fields   map[string]string // every column of the row
}

// Catalog is the list of datasets published by DOL.
type Catalog []Endpoint

// ListEndpoints downloads the agency/endpoint catalog. A non-empty agency
// keeps only the rows of that agency (case-insensitive).
func (c *Client) ListEndpoints(ctx context.Context, agency string) (_ Catalog, err error) {
	resp, err := c.get(ctx, c.options.CatalogURL, nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetching endpoint catalog: %w", err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	catalog, err := ParseCatalog(resp.Body)
	if err != nil {
		return nil, err
	}

	return catalog.Agency(agency), nil
}

// ParseCatalog reads the catalog CSV. The header row names the columns.
func ParseCatalog(r io.Reader) (Catalog, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Catalog{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	catalog := Catalog{}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}

		fields := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				fields[name] = record[i]
			}
		}

		catalog = append(catalog, Endpoint{
			Agency:   fields["agency"],
			Endpoint: fields["endpoint"],
			Fields:   fields,
		})
	}

	return catalog, nil
}

// Agency returns the endpoints of agency; all of them when agency is empty.
func (c Catalog) Agency(agency string) Catalog {
	if agency == "" {
		return c
	}

	ret := Catalog{}

	for _, e := range c {
		if strings.EqualFold(e.Agency, agency) {
			ret = append(ret, e)
		}
	}

	return ret
}

// Find locates an endpoint by case-insensitive prefix. An exact match wins
// over prefixes; several prefix matches are an error.
func (c Catalog) Find(q string) (*Endpoint, error) {
	if q == "" {
		return nil, errors.New("empty search query")
	}

	for i := range c {
		if strings.EqualFold(c[i].Endpoint, q) {
			e := c[i]

			return &e, nil
		}
	}

	var found *Endpoint

	for i := range c {
		name := c[i].Endpoint
		if len(name) >= len(q) && strings.EqualFold(name[:len(q)], q) {
			if found != nil {
				return nil, fmt.Errorf("%w for %q: %q, %q", errMultipleMatches, q, found.Endpoint, name)
			}

			e := c[i]
			found = &e
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", errEndpointNotFound, q)
	}

	return found, nil
}

// Each applies the given callback function to each endpoint.
// It stops iteration and returns the error if the callback returns an error.
func (c Catalog) Each(callback func(Endpoint) error) error {
	for i := range c {
		if err := callback(c[i]); err != nil {
			return err
		}
	}

	return nil
}
