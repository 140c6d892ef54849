// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package edgar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/supplymri/supplymri/sources"
)

// DownloadOptions controls how documents are saved.
type DownloadOptions struct {
	// Writes the .metadata.json sidecar next to each document
	IncludeMetadata bool

	// Downloads the document again even if a local copy exists
	Overwrite bool
}

// DownloadMetrics tracks statistics about the download process.
type DownloadMetrics struct {
	DownloadsOk      int
	DownloadsErr     int
	DownloadsSkipped int
}

// Merge combines two DownloadMetrics.
func (f *DownloadMetrics) Merge(o *DownloadMetrics) *DownloadMetrics {
	f.DownloadsOk += o.DownloadsOk
	f.DownloadsErr += o.DownloadsErr
	f.DownloadsSkipped += o.DownloadsSkipped

	return f
}

// Download saves doc below dest and returns the document path. An existing
// copy is kept unless opts.Overwrite is set; the sidecar is always rewritten
// when requested.
func (c *Client) Download(ctx context.Context, doc *Document, dest string, opts DownloadOptions) (string, error) {
	store := NewFileStore(dest)
	path := store.DocumentPath(doc)

	exists, err := store.Exists(doc)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", path, err)
	}

	if opts.Overwrite || !exists {
		if err := c.fetchDocument(ctx, store, doc); err != nil {
			return "", err
		}
	} else {
		c.Metrics.DownloadsSkipped++
	}

	if opts.IncludeMetadata {
		if err := store.SaveMetadata(doc); err != nil {
			return "", fmt.Errorf("saving metadata: %q %w", doc.URL, err)
		}
	}

	return path, nil
}

func (c *Client) fetchDocument(ctx context.Context, store *FileStore, doc *Document) (err error) {
	resp, err := c.get(ctx, doc.URL, nil, false)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", doc.URL, err)
	}

	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("closing resp.Body: %w", cerr))
		}
	}()

	if err := store.SaveDocument(doc, resp.Body); err != nil {
		return fmt.Errorf("saving document: %q %w", doc.URL, err)
	}

	return nil
}

// DownloadAll downloads every document, continuing after failures. The
// returned result lists the saved documents; errors are joined.
func (c *Client) DownloadAll(ctx context.Context, docs []Document, dest string, opts DownloadOptions) (*sources.WorkflowResult, error) {
	n := len(docs)
	result := &sources.WorkflowResult{Source: sources.EDGAR, SavedPaths: []string{}}

	if n == 0 {
		log.Println("Nothing to download")

		return result, nil
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Downloading EDGAR documents"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var errs []error

	for i := range docs {
		doc := &docs[i]

		if bar == nil {
			log.Printf("[%d/%d] Downloading %s", i+1, n, doc.URL)
		}

		path, err := c.Download(ctx, doc, dest, opts)
		if err != nil {
			c.Metrics.DownloadsErr++

			errs = append(errs, err)
			log.Printf("[%d/%d] Download failed: %s", i+1, n, err)
		} else {
			c.Metrics.DownloadsOk++

			result.SavedPaths = append(result.SavedPaths, path)
		}

		if bar != nil {
			if err := bar.Add(1); err != nil {
				errs = append(errs, fmt.Errorf("updating progress bar: %w", err))
			}
		}

		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())

			break
		}
	}

	log.Printf(
		"Download phase completed - %d successful, %d failed, %d already present",
		c.Metrics.DownloadsOk,
		c.Metrics.DownloadsErr,
		c.Metrics.DownloadsSkipped,
	)

	result.Details = map[string]any{
		"downloads_ok":      c.Metrics.DownloadsOk,
		"downloads_err":     c.Metrics.DownloadsErr,
		"downloads_skipped": c.Metrics.DownloadsSkipped,
	}

	return result, errors.Join(errs...)
}
