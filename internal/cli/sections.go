package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/poutila/doxstrux-sub002/internal/parser"
	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

func newSectionsCommand(a *app) *cobra.Command {
	var (
		line   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "sections <file>",
		Short: "Print the section table of a document",
		Long: `Sections prints every section with its level, inclusive line range and
heading path. With --line it prints only the section containing that
0-based line, or nothing when the line lies outside every section.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.settings()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tk, err := parser.ForFile(args[0], parser.Options{PDFFallback: cfg.PDFFallbackPdftotext})
			if err != nil {
				return err
			}
			doc, err := tk.Tokenize(bytes.NewReader(data), args[0])
			if err != nil {
				return err
			}
			wh, err := warehouse.New(doc.Tokens, doc.Text, warehouse.Config{
				MaxTokens: cfg.MaxTokens,
				MaxBytes:  cfg.MaxContentBytes,
				Logger:    a.logger(cmd.ErrOrStderr()),
			})
			if err != nil {
				return err
			}

			sections := wh.Sections()
			if cmd.Flags().Changed("line") {
				s, ok := wh.SectionOf(line)
				if !ok {
					return nil
				}
				sections = []warehouse.Section{s}
			}
			return printSections(cmd.OutOrStdout(), wh, sections, asJSON)
		},
	}
	cmd.Flags().IntVarP(&line, "line", "l", 0, "print only the section containing this 0-based line")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

type sectionRow struct {
	warehouse.Section
	Path []string `json:"path"`
}

func printSections(out io.Writer, wh *warehouse.Warehouse, sections []warehouse.Section, asJSON bool) error {
	rows := make([]sectionRow, len(sections))
	for i, s := range sections {
		rows[i] = sectionRow{Section: s, Path: wh.SectionPath(s.Index)}
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tLEVEL\tLINES\tPATH")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%d-%d\t%s\n", r.Index, r.Level, r.StartLine, r.EndLine, strings.Join(r.Path, " > "))
	}
	return tw.Flush()
}
