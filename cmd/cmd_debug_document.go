// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/edgar"
	"github.com/supplymri/supplymri/geoloc"
)

var debugDocumentGazetteer string

var debugDocumentCmd = &cobra.Command{
	Use:   "document <file>",
	Short: "Infer the project of a downloaded EDGAR document and print it as JSON",
	Long: `Reads a downloaded document and its .metadata.json sidecar, infers the
mining project it describes and prints it in JSON format. The file may be the
document or the sidecar.

Examples:
  supplymri debug document data/edgar/1234/000123456724000001/ex96.htm
  supplymri debug document --gazetteer mines.csv data/edgar/1234/000123456724000001/ex96.htm`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		project, err := edgar.LoadProject(args[0])
		if err != nil {
			return err
		}

		if debugDocumentGazetteer != "" {
			gazetteer, err := geoloc.OpenGazetteer(debugDocumentGazetteer)
			if err != nil {
				return err
			}

			edgar.ResolveWithGazetteer([]*edgar.Project{project}, gazetteer)
		}

		output, err := json.MarshalIndent(project, "", "  ")
		if err != nil {
			return fmt.Errorf("error marshalling json: %w", err)
		}

		fmt.Println(string(output))

		return nil
	},
}

func init() {
	debugDocumentCmd.Flags().StringVar(&debugDocumentGazetteer, "gazetteer", "", "Optional gazetteer to resolve the project")
}
