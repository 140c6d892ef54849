// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

// Package sources holds what the dataset downloaders have in common.
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Source identifiers.
const (
	EDGAR = "edgar"
	MSHA  = "msha"
)

// WorkflowResult summarizes a download workflow.
type WorkflowResult struct {
	Source     string         `json:"source"`
	SavedPaths []string       `json:"saved_paths"`
	Details    map[string]any `json:"details,omitempty"`
}

// Count returns the number of saved files.
func (r *WorkflowResult) Count() int {
	return len(r.SavedPaths)
}

// Extend returns a copy of r with paths appended.
func (r *WorkflowResult) Extend(paths ...string) *WorkflowResult {
	saved := make([]string, 0, len(r.SavedPaths)+len(paths))
	saved = append(saved, r.SavedPaths...)
	saved = append(saved, paths...)

	return &WorkflowResult{
		Source:     r.Source,
		SavedPaths: saved,
		Details:    r.Details,
	}
}

// String renders the one line summary printed by the CLI.
func (r *WorkflowResult) String() string {
	return fmt.Sprintf("%s: saved %d file(s)", r.Source, r.Count())
}

// ResolveDestination expands "~" and makes dest absolute. An empty dest
// defaults to data/<source>.
func ResolveDestination(source, dest string) (string, error) {
	if dest == "" {
		dest = filepath.Join("data", source)
	}

	if dest == "~" || strings.HasPrefix(dest, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}

		dest = filepath.Join(home, strings.TrimPrefix(dest, "~"))
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolving destination %q: %w", dest, err)
	}

	return abs, nil
}
