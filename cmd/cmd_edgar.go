// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/edgar"
	"github.com/supplymri/supplymri/sources"
	"github.com/supplymri/supplymri/utils/validation"
)

type edgarOptions struct {
	Query             string `validate:"required"`
	Limit             int    `validate:"gt=0"`
	Forms             []string
	DescriptionFilter string
	DateRange         string
	Start             int           `validate:"gte=0"`
	Throttle          time.Duration `validate:"gte=0"`
	Dest              string
	NoMetadata        bool
	Overwrite         bool
}

var (
	edgarOpts      = &edgarOptions{}
	edgarHTTPFlags = &httpFlags{}
)

var edgarCmd = &cobra.Command{
	Use:   "edgar",
	Short: "Search and download SEC EDGAR filings",
}

func newEdgarClient() *edgar.Client {
	options := edgar.DefaultClientOptions()
	options.Throttle = edgarOpts.Throttle
	options.EnableHTTPTrace = edgarHTTPFlags.EnableHTTPTrace
	options.EnableHTTPBodyTrace = edgarHTTPFlags.EnableHTTPBodyTrace

	if edgarHTTPFlags.UserAgent != "" {
		options.UserAgent = edgarHTTPFlags.UserAgent
	}

	return edgar.NewClient(options)
}

func edgarQuery() edgar.SearchQuery {
	return edgar.SearchQuery{
		Query:             edgarOpts.Query,
		Limit:             edgarOpts.Limit,
		Forms:             edgarOpts.Forms,
		DescriptionFilter: edgarOpts.DescriptionFilter,
		Start:             edgarOpts.Start,
		DateRange:         edgarOpts.DateRange,
	}
}

var edgarSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "List the documents matching a full-text search",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.Struct(edgarOpts); err != nil {
			return err
		}

		client := newEdgarClient()

		docs, err := client.Search(cmd.Context(), edgarQuery())
		if err != nil {
			return withHint(err, "")
		}

		for _, doc := range docs {
			fmt.Printf("%s\t%s\t%s\t%s\n", doc.FileDate, doc.Form, doc.CompanyNames.First(), doc.URL)
		}

		log.Printf("Found %d documents in %d pages", len(docs), client.Metrics.SearchPages)

		return nil
	},
}

var edgarDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Search EDGAR and download the matching documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.Struct(edgarOpts); err != nil {
			return err
		}

		dest, err := sources.ResolveDestination(sources.EDGAR, edgarOpts.Dest)
		if err != nil {
			return err
		}

		client := newEdgarClient()

		log.Printf("Searching EDGAR for %q", edgarOpts.Query)

		docs, err := client.Search(cmd.Context(), edgarQuery())
		if err != nil {
			return withHint(err, "")
		}

		if len(docs) == 0 {
			fmt.Fprintln(os.Stderr, "No documents matched the query.")

			return nil
		}

		log.Printf("Found %d documents. Downloading to %s", len(docs), dest)

		result, err := client.DownloadAll(cmd.Context(), docs, dest, edgar.DownloadOptions{
			IncludeMetadata: !edgarOpts.NoMetadata,
			Overwrite:       edgarOpts.Overwrite,
		})
		if result != nil {
			printWorkflow(result)
			log.Printf(
				"Total download phase metrics - %d successful, %d skipped, %d failed",
				client.Metrics.DownloadsOk,
				client.Metrics.DownloadsSkipped,
				client.Metrics.DownloadsErr,
			)
		}

		return withHint(err, "")
	},
}

func init() {
	rootCmd.AddCommand(edgarCmd)
	edgarCmd.AddCommand(edgarSearchCmd)
	edgarCmd.AddCommand(edgarDownloadCmd)

	edgarHTTPFlags.register(edgarCmd)

	flags := edgarCmd.PersistentFlags()
	flags.StringVar(&edgarOpts.Query, "query", "S-K 1300", "Full-text search query")
	flags.IntVar(&edgarOpts.Limit, "limit", 10, "Maximum number of documents")
	flags.StringSliceVar(&edgarOpts.Forms, "forms", nil, "Restrict to form types (e.g. 10-K,EX-96)")
	flags.StringVar(
		&edgarOpts.DescriptionFilter,
		"description-filter",
		"",
		"Only keep documents whose description, type or extension contains this substring",
	)
	flags.StringVar(&edgarOpts.DateRange, "date-range", "all", "Filed date range filter (all, 10d, 1m, 1y, custom…)")
	flags.IntVar(&edgarOpts.Start, "start", 0, "Result index to start from")
	flags.DurationVar(&edgarOpts.Throttle, "throttle", edgar.DefaultThrottle, "Minimum delay between requests")

	edgarDownloadCmd.Flags().StringVar(&edgarOpts.Dest, "dest", "", "Destination directory (default data/edgar)")
	edgarDownloadCmd.Flags().BoolVar(&edgarOpts.NoMetadata, "no-metadata", false, "Skip the .metadata.json sidecars")
	edgarDownloadCmd.Flags().BoolVar(&edgarOpts.Overwrite, "overwrite", false, "Download files that already exist")
}
