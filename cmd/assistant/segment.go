package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/PabloGalante/assistant-chat/internal/segment"
)

func segmentCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "segment [file]",
		Short: "Split a reply into prose and code segments",
		Long:  "Reads a reply from the file (or stdin) and prints the segments the chat UI would render.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := io.Reader(os.Stdin)
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			content, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			segs := segment.Split(string(content))
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(segs)
			}
			printSegments(cmd.OutOrStdout(), segs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print segments as JSON")
	return cmd
}

func printSegments(w io.Writer, segs []segment.Segment) {
	header := color.New(color.FgCyan, color.Bold)
	lang := color.New(color.FgYellow)
	code := color.New(color.FgGreen)

	for i, s := range segs {
		header.Fprintf(w, "[%d] %s", i+1, s.Kind)
		if s.Kind == segment.KindCode {
			language := s.Language
			if !s.Tagged {
				language = segment.DetectLanguage(s.Text) + " (detected)"
			}
			lang.Fprintf(w, " %s", language)
			fmt.Fprintln(w)
			code.Fprintln(w, s.Text)
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, s.Text)
	}
}
