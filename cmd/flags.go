// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/sources"
	"github.com/supplymri/supplymri/utils/httputils"
)

// httpFlags are shared by the commands that talk to remote APIs.
type httpFlags struct {
	UserAgent           string
	EnableHTTPTrace     bool
	EnableHTTPBodyTrace bool
}

func (f *httpFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&f.UserAgent,
		"user-agent",
		"",
		"Override the User-Agent header",
	)
	cmd.PersistentFlags().BoolVar(
		&f.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	cmd.PersistentFlags().BoolVar(
		&f.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}

func userAgent(override string) string {
	if override != "" {
		return override
	}

	return fmt.Sprintf("supplymri/%s (contact@supplymri.example)", Version)
}

func printWorkflow(result *sources.WorkflowResult) {
	for _, path := range result.SavedPaths {
		fmt.Println(path)
	}

	fmt.Fprintln(os.Stderr, result.String())
}

// withHint logs a suggestion for remote errors the user can act on and
// returns err unchanged.
func withHint(err error, notFound string) error {
	switch {
	case err == nil:
	case httputils.IsRateLimitError(err):
		log.Printf("[warn] The remote API is rate limiting requests; retry later or raise --throttle")
	case httputils.IsNotFoundError(err) && notFound != "":
		log.Printf("[warn] %s", notFound)
	}

	return err
}
