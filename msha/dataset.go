// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package msha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/supplymri/supplymri/sources"
	"github.com/supplymri/supplymri/utils/validation"
)

// DefaultChunkSize is the number of rows requested per page.
const DefaultChunkSize = 1000

// DatasetOptions controls DownloadDataset.
type DatasetOptions struct {
	// Maximum number of rows; zero means everything
	Limit int `validate:"gte=0"`

	// First row to download
	Offset int `validate:"gte=0"`

	// Rows per request
	ChunkSize int `validate:"gt=0"`

	// Writes the dataset metadata and one sidecar per chunk
	IncludeMetadata bool

	// Rewrites files that already exist
	Overwrite bool

	// Sent JSON encoded as filter_object
	Filter map[string]any

	// Additional query parameters, they override limit/offset
	ExtraParams map[string]string
}

// DefaultDatasetOptions returns the options of a full download with
// metadata.
func DefaultDatasetOptions() DatasetOptions {
	return DatasetOptions{
		ChunkSize:       DefaultChunkSize,
		IncludeMetadata: true,
	}
}

// DatasetMetrics tracks statistics about dataset downloads.
type DatasetMetrics struct {
	Chunks  int
	Records int
	Written int
}

// Merge combines two DatasetMetrics.
func (m *DatasetMetrics) Merge(o *DatasetMetrics) *DatasetMetrics {
	m.Chunks += o.Chunks
	m.Records += o.Records
	m.Written += o.Written

	return m
}

// rowKeys are looked up, in order, for the list of rows of a response.
var (
	rowKeys       = []string{"data", "Data", "results", "Results", "items", "Items", "records", "Records"}
	resultRowKeys = []string{"records", "data", "Results"}
)

// extractRows locates the list of records in a page. Responses are either a
// list or an object holding it under one of the well known keys; failing
// that, the first list valued key wins.
func extractRows(payload json.RawMessage) []json.RawMessage {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil
	}

	switch payload[0] {
	case '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(payload, &rows); err != nil {
			return nil
		}

		return rows
	case '{':
	default:
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil
	}

	for _, key := range rowKeys {
		if rows, ok := asList(obj[key]); ok {
			return rows
		}
	}

	var result map[string]json.RawMessage
	if err := json.Unmarshal(obj["result"], &result); err == nil {
		for _, key := range resultRowKeys {
			if rows, ok := asList(result[key]); ok {
				return rows
			}
		}
	}

	return firstList(payload)
}

func asList(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, false
	}

	return rows, true
}

// firstList returns the first list valued key of obj in document order.
func firstList(obj json.RawMessage) []json.RawMessage {
	dec := json.NewDecoder(bytes.NewReader(obj))

	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}

	for dec.More() {
		if _, err := dec.Token(); err != nil { // key
			return nil
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil
		}

		if rows, ok := asList(value); ok {
			return rows
		}
	}

	return nil
}

// datasetDir is <dest>/<agency lower case>/<endpoint>.
func datasetDir(dest, agency, endpoint string) string {
	return filepath.Join(dest, strings.ToLower(agency), endpoint)
}

// writeIfNeeded writes data to path unless it exists and overwrite is false.
// It reports whether the file was written.
func writeIfNeeded(path string, data []byte, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}

	return true, nil
}

// sortedJSON re-encodes raw with sorted keys and indentation.
func sortedJSON(raw json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}

	return json.MarshalIndent(v, "", "  ")
}

// DownloadDataset pages through agency/endpoint and stores every chunk as
// <endpoint>_offset_<offset>.json below <dest>/<agency>/<endpoint>. Paging
// stops on an empty or short chunk, or once opts.Limit rows are downloaded.
func (c *Client) DownloadDataset(
	ctx context.Context,
	agency, endpoint, dest string,
	opts DatasetOptions,
) (*sources.WorkflowResult, error) {
	if err := validation.Struct(opts); err != nil {
		return nil, err
	}

	dir := datasetDir(dest, agency, endpoint)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	result := &sources.WorkflowResult{
		Source:     sources.MSHA,
		SavedPaths: []string{},
		Details: map[string]any{
			"agency":      agency,
			"endpoint":    endpoint,
			"destination": dir,
		},
	}

	var filter string

	if len(opts.Filter) > 0 {
		b, err := json.Marshal(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("encoding filter_object: %w", err)
		}

		filter = string(b)
	}

	datasetMetadataName := endpoint + "_dataset_metadata.json"

	if opts.IncludeMetadata {
		raw, err := c.FetchMetadata(ctx, agency, endpoint)
		if err != nil {
			return nil, err
		}

		data, err := sortedJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("encoding dataset metadata: %w", err)
		}

		if _, err := writeIfNeeded(filepath.Join(dir, datasetMetadataName), data, opts.Overwrite); err != nil {
			return nil, err
		}
	}

	metrics := DatasetMetrics{}
	total := 0

	for {
		currentLimit := opts.ChunkSize

		if opts.Limit > 0 {
			remaining := opts.Limit - total
			if remaining <= 0 {
				break
			}

			currentLimit = min(currentLimit, remaining)
		}

		chunkOffset := opts.Offset + total

		params := url.Values{
			"limit":  {strconv.Itoa(currentLimit)},
			"offset": {strconv.Itoa(chunkOffset)},
		}
		if filter != "" {
			params.Set("filter_object", filter)
		}

		for k, v := range opts.ExtraParams {
			params.Set(k, v)
		}

		log.Printf("[%s/%s] Fetching %d rows from offset %d", agency, endpoint, currentLimit, chunkOffset)

		payload, err := c.FetchPage(ctx, agency, endpoint, params)
		if err != nil {
			c.Metrics.Merge(&metrics)

			return result, err
		}

		rows := extractRows(payload)
		recordCount := len(rows)

		if recordCount == 0 {
			break
		}

		metrics.Chunks++
		metrics.Records += recordCount

		dataPath := filepath.Join(dir, fmt.Sprintf("%s_offset_%09d.json", endpoint, chunkOffset))

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, payload, "", "  "); err != nil {
			return result, fmt.Errorf("formatting chunk: %w", err)
		}

		written, err := writeIfNeeded(dataPath, pretty.Bytes(), opts.Overwrite)
		if err != nil {
			return result, err
		}

		if written {
			metrics.Written++
		}

		result.SavedPaths = append(result.SavedPaths, dataPath)

		if opts.IncludeMetadata {
			requested := make(map[string]any, len(params))
			for k := range params {
				requested[k] = params.Get(k)
			}

			// numeric parameters stay numeric in the sidecar
			requested["limit"] = currentLimit
			requested["offset"] = chunkOffset

			if v, ok := opts.ExtraParams["limit"]; ok {
				requested["limit"] = v
			}

			if v, ok := opts.ExtraParams["offset"]; ok {
				requested["offset"] = v
			}

			sidecar := map[string]any{
				"agency":                agency,
				"endpoint":              endpoint,
				"format":                "json",
				"requested_params":      requested,
				"record_count":          recordCount,
				"offset":                chunkOffset,
				"chunk_size":            currentLimit,
				"downloaded_at":         time.Now().UTC().Format(time.RFC3339Nano),
				"dataset_metadata_path": datasetMetadataName,
			}

			data, err := json.MarshalIndent(sidecar, "", "  ")
			if err != nil {
				return result, fmt.Errorf("encoding chunk metadata: %w", err)
			}

			if _, err := writeIfNeeded(dataPath+".metadata.json", data, opts.Overwrite); err != nil {
				return result, err
			}
		}

		total += recordCount
		if recordCount < currentLimit {
			break
		}
	}

	c.Metrics.Merge(&metrics)

	log.Printf(
		"[%s/%s] Download completed - %d records in %d chunks, %d files written",
		agency, endpoint, metrics.Records, metrics.Chunks, metrics.Written,
	)

	result.Details["saved"] = len(result.SavedPaths)
	result.Details["records"] = metrics.Records

	return result, nil
}
