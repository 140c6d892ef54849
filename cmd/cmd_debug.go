// Copyright 2025 The SupplyMRI Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/supplymri/supplymri/geoloc"
)

var debugOptions = struct {
	Gazetteer    string
	Jurisdiction string
	MaxHints     int
}{}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

// eachLine calls fn for every line of stdin, prompting when stdin is a
// terminal.
func eachLine(prompt string, fn func(line string) error) error {
	input := os.Stdin
	if isatty.IsTerminal(input.Fd()) {
		fmt.Fprintln(os.Stderr, prompt)
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

func printJSON(w io.Writer, prefix string, v any) error {
	s, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\t\t%s\n", prefix, s)

	return err
}

var debugCoordinatesCmd = &cobra.Command{
	Use:   "coordinates",
	Short: "Extract the coordinates written in each line of text",
	Long: `Reads one text per line and prints the text followed by the coordinate
pairs found in it.

$ echo "Coordinates: 45.5N 122.6W" | supplymri debug coordinates
Coordinates: 45.5N 122.6W		[{"lat":45.5,"lng":-122.6}]
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter texts to analyze, one per line…", func(line string) error {
			return printJSON(os.Stdout, line, geoloc.ExtractCoordinates(line))
		})
	},
}

var debugHintsCmd = &cobra.Command{
	Use:   "hints",
	Short: "Extract the location hints of each line of text",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return eachLine("Enter texts to analyze, one per line…", func(line string) error {
			return printJSON(os.Stdout, line, geoloc.ExtractLocationHints(line, debugOptions.MaxHints))
		})
	},
}

var debugMatchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match project names against a gazetteer",
	Long: `Reads one project name per line and prints the best gazetteer match. Extra
hints can follow the name separated by tabs.

$ printf 'Silver Peak Project\n' | supplymri debug match --gazetteer mines.csv
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		gazetteer, err := geoloc.OpenGazetteer(debugOptions.Gazetteer)
		if err != nil {
			return err
		}

		return eachLine("Enter project names to match, one per line…", func(line string) error {
			fields := strings.Split(line, "\t")
			name, hints := fields[0], fields[1:]

			resolved := gazetteer.Resolve(name, debugOptions.Jurisdiction, hints)
			if resolved == nil {
				_, err := fmt.Printf("%s\t%q\n", name, "no match")

				return err
			}

			return printJSON(os.Stdout, name, resolved)
		})
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugCoordinatesCmd)
	debugCmd.AddCommand(debugHintsCmd)
	debugCmd.AddCommand(debugMatchCmd)
	debugCmd.AddCommand(debugDocumentCmd)

	debugHintsCmd.Flags().IntVar(&debugOptions.MaxHints, "max", geoloc.DefaultMaxHints, "Maximum number of hints per line")
	debugMatchCmd.Flags().StringVar(&debugOptions.Gazetteer, "gazetteer", "", "CSV/JSON/GeoJSON gazetteer")
	debugMatchCmd.Flags().StringVar(&debugOptions.Jurisdiction, "jurisdiction", "", "Only match entries of this jurisdiction")
	_ = debugMatchCmd.MarkFlagRequired("gazetteer")
}
