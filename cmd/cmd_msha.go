// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/msha"
	"github.com/supplymri/supplymri/sources"
	"github.com/supplymri/supplymri/utils/validation"
)

var (
	errConflictingFilters = errors.New("specify at most one of --filter-json or --filter-file")
	errInvalidParam       = errors.New("invalid --param value, expected KEY=VALUE")
)

type mshaOptions struct {
	APIKey     string
	Agency     string        `validate:"required"`
	Endpoints  []string      `validate:"required,min=1"`
	Limit      int           `validate:"gt=0"`
	Offset     int           `validate:"gte=0"`
	ChunkSize  int           `validate:"gt=0"`
	Throttle   time.Duration `validate:"gte=0"`
	Dest       string
	FilterJSON string
	FilterFile string
	Params     []string
	NoMetadata bool
	Overwrite  bool
}

var (
	mshaOpts      = &mshaOptions{}
	mshaHTTPFlags = &httpFlags{}
)

var mshaCmd = &cobra.Command{
	Use:   "msha",
	Short: "Download MSHA Mine Data Retrieval System datasets",
}

func newMshaClient() (*msha.Client, error) {
	apiKey := mshaOpts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(msha.APIKeyEnv)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("%w (use --api-key or set %s)", msha.ErrMissingAPIKey, msha.APIKeyEnv)
	}

	options := msha.DefaultClientOptions()
	options.Throttle = mshaOpts.Throttle
	options.UserAgent = userAgent(mshaHTTPFlags.UserAgent)
	options.EnableHTTPTrace = mshaHTTPFlags.EnableHTTPTrace
	options.EnableHTTPBodyTrace = mshaHTTPFlags.EnableHTTPBodyTrace

	return msha.NewClient(apiKey, options)
}

// parseFilter returns the filter_object given either inline or in a file.
func parseFilter(filterJSON, filterFile string) (map[string]any, error) {
	if filterJSON != "" && filterFile != "" {
		return nil, errConflictingFilters
	}

	var (
		raw    []byte
		origin string
	)

	switch {
	case filterJSON != "":
		raw, origin = []byte(filterJSON), "--filter-json"
	case filterFile != "":
		data, err := os.ReadFile(filterFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read filter file: %w", err)
		}

		raw, origin = data, "--filter-file"
	default:
		return nil, nil
	}

	var filter map[string]any
	if err := json.Unmarshal(raw, &filter); err != nil {
		return nil, fmt.Errorf("%s must contain a valid JSON object: %w", origin, err)
	}

	return filter, nil
}

// parseParams turns KEY=VALUE options into a map. Values may contain "=".
func parseParams(options []string) (map[string]string, error) {
	params := make(map[string]string, len(options))

	for _, option := range options {
		key, value, ok := strings.Cut(option, "=")
		key = strings.TrimSpace(key)

		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", errInvalidParam, option)
		}

		params[key] = value
	}

	return params, nil
}

var mshaEndpointsCmd = &cobra.Command{
	Use:   "endpoints [endpoint]",
	Short: "List the datasets published by an agency",
	Long: `Lists the agency/endpoint catalog. When an endpoint (or a unique prefix of
one) is given, every column of its catalog row is printed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newMshaClient()
		if err != nil {
			return err
		}

		catalog, err := client.ListEndpoints(cmd.Context(), mshaOpts.Agency)
		if err != nil {
			return withHint(err, "")
		}

		if len(args) > 0 {
			endpoint, err := catalog.Find(args[0])
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(endpoint.Fields))
			for k := range endpoint.Fields {
				keys = append(keys, k)
			}

			sort.Strings(keys)

			for _, k := range keys {
				fmt.Printf("%-24s %s\n", k, endpoint.Fields[k])
			}

			return nil
		}

		if len(catalog) == 0 {
			fmt.Printf("No endpoints found for agency %q.\n", mshaOpts.Agency)

			return nil
		}

		return catalog.Each(func(e msha.Endpoint) error {
			description := strings.ReplaceAll(strings.TrimSpace(e.Fields["description"]), "\n", " ")
			fmt.Printf("%s / %s: %s\n", e.Agency, e.Endpoint, description)

			return nil
		})
	},
}

var mshaDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download one or more datasets in chunks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := validation.Struct(mshaOpts); err != nil {
			return err
		}

		filter, err := parseFilter(mshaOpts.FilterJSON, mshaOpts.FilterFile)
		if err != nil {
			return err
		}

		params, err := parseParams(mshaOpts.Params)
		if err != nil {
			return err
		}

		dest, err := sources.ResolveDestination(sources.MSHA, mshaOpts.Dest)
		if err != nil {
			return err
		}

		client, err := newMshaClient()
		if err != nil {
			return err
		}

		opts := msha.DatasetOptions{
			Limit:           mshaOpts.Limit,
			Offset:          mshaOpts.Offset,
			ChunkSize:       mshaOpts.ChunkSize,
			IncludeMetadata: !mshaOpts.NoMetadata,
			Overwrite:       mshaOpts.Overwrite,
			Filter:          filter,
			ExtraParams:     params,
		}

		for i, endpoint := range mshaOpts.Endpoints {
			log.Printf("[%d/%d] Downloading endpoint %q (agency=%s) into %s",
				i+1, len(mshaOpts.Endpoints), endpoint, mshaOpts.Agency, dest)

			result, err := client.DownloadDataset(cmd.Context(), mshaOpts.Agency, endpoint, dest, opts)
			if err != nil {
				return withHint(
					fmt.Errorf("endpoint %s: %w", endpoint, err),
					"Unknown dataset? See 'supplymri msha endpoints' for the published endpoints",
				)
			}

			if result.Count() == 0 {
				fmt.Fprintf(os.Stderr, "No data returned for endpoint %q.\n", endpoint)

				continue
			}

			printWorkflow(result)
		}

		log.Printf(
			"Total download metrics - %d records in %d chunks, %d files written",
			client.Metrics.Records,
			client.Metrics.Chunks,
			client.Metrics.Written,
		)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(mshaCmd)
	mshaCmd.AddCommand(mshaEndpointsCmd)
	mshaCmd.AddCommand(mshaDownloadCmd)

	mshaHTTPFlags.register(mshaCmd)

	flags := mshaCmd.PersistentFlags()
	flags.StringVar(&mshaOpts.APIKey, "api-key", "", "DOL Open Data API key (defaults to $"+msha.APIKeyEnv+")")
	flags.StringVar(&mshaOpts.Agency, "agency", "msha", "Agency abbreviation")
	flags.DurationVar(&mshaOpts.Throttle, "throttle", msha.DefaultThrottle, "Minimum delay between requests")

	dl := mshaDownloadCmd.Flags()
	dl.StringArrayVar(&mshaOpts.Endpoints, "endpoint", nil, "Dataset endpoint name (may be repeated)")
	dl.IntVar(&mshaOpts.Limit, "limit", 1000, "Maximum number of records per endpoint")
	dl.IntVar(&mshaOpts.Offset, "offset", 0, "Starting record offset")
	dl.IntVar(&mshaOpts.ChunkSize, "chunk-size", 500, "Number of records per API call")
	dl.StringVar(&mshaOpts.Dest, "dest", "", "Destination directory (default data/msha)")
	dl.StringVar(&mshaOpts.FilterJSON, "filter-json", "", "JSON passed as the filter_object parameter")
	dl.StringVar(&mshaOpts.FilterFile, "filter-file", "", "File holding the filter_object JSON")
	dl.StringArrayVar(&mshaOpts.Params, "param", nil, "Additional KEY=VALUE query parameter (may be repeated)")
	dl.BoolVar(&mshaOpts.NoMetadata, "no-metadata", false, "Skip dataset and chunk metadata files")
	dl.BoolVar(&mshaOpts.Overwrite, "overwrite", false, "Overwrite files that already exist")
}
