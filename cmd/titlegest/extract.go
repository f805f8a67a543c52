package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/titlegest/internal/config"
	"github.com/dgallion1/titlegest/internal/doctree"
	"github.com/dgallion1/titlegest/internal/parser"
	"github.com/dgallion1/titlegest/internal/pipeline"
	"github.com/dgallion1/titlegest/internal/store"
	"github.com/dgallion1/titlegest/internal/titles"
)

// extractOptions carries the extract command's flags.
type extractOptions struct {
	Titles  titles.Config
	Parser  parser.Options
	Output  string
	Outline bool
	Save    bool
	DBPath  string
}

var extractFlags struct {
	fontSize  float64
	minLength int
	minDist   int
	startPage int
	endPage   int
	output    string
	outline   bool
	save      bool
}

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Detect titles in a document",
	Long: `Detect titles in a document and print them per page.

Thresholds default to the config file and environment, and flags override
them. Structural formats (Markdown, HTML, DOCX) use nominal heading sizes:
h1 24, h2 18, h3 14, h4 12, body 10.

Examples:
  titlegest extract paper.pdf
  titlegest extract paper.pdf --title-font-size 12 -o json
  titlegest extract notes.md --title-font-size 14 --outline
  titlegest extract book.pdf --start-page 10 --end-page 20 --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		opts := extractOptions{
			Titles:  cfg.Titles(),
			Parser:  parser.DefaultOptions(),
			Output:  extractFlags.output,
			Outline: extractFlags.outline,
			Save:    extractFlags.save,
			DBPath:  cfg.DBPath,
		}
		flags := cmd.Flags()
		if flags.Changed("title-font-size") {
			opts.Titles.TitleFontSize = extractFlags.fontSize
		}
		if flags.Changed("min-title-length") {
			opts.Titles.MinTitleLength = extractFlags.minLength
		}
		if flags.Changed("min-title-distance") {
			opts.Titles.MinTitleDistance = extractFlags.minDist
		}
		opts.Parser.StartPage = extractFlags.startPage
		opts.Parser.EndPage = extractFlags.endPage

		return runExtract(cmd.Context(), cmd.OutOrStdout(), args[0], opts, cliLogger())
	},
}

func init() {
	d := titles.DefaultConfig()
	f := extractCmd.Flags()
	f.Float64Var(&extractFlags.fontSize, "title-font-size", d.TitleFontSize, "font height at or above which text is title text")
	f.IntVar(&extractFlags.minLength, "min-title-length", d.MinTitleLength, "titles must be longer than this many characters")
	f.IntVar(&extractFlags.minDist, "min-title-distance", d.MinTitleDistance, "minimum characters between title starts on a page")
	f.IntVar(&extractFlags.startPage, "start-page", 0, "first page to read (1-based, 0 = first)")
	f.IntVar(&extractFlags.endPage, "end-page", 0, "last page to read (0 = last)")
	f.StringVarP(&extractFlags.output, "output", "o", "text", "output format: text, json or yaml")
	f.BoolVar(&extractFlags.outline, "outline", false, "print the section outline instead of per-page titles")
	f.BoolVar(&extractFlags.save, "save", false, "store the result in the database")
}

// extractReport is the serialized form of an extract run.
type extractReport struct {
	File       string              `json:"file" yaml:"file"`
	Config     titles.Config       `json:"config" yaml:"config"`
	TitleCount int                 `json:"title_count" yaml:"title_count"`
	Pages      []titles.PageResult `json:"pages,omitempty" yaml:"pages,omitempty"`
	Outline    *doctree.DocTree    `json:"outline,omitempty" yaml:"outline,omitempty"`
	DocID      string              `json:"doc_id,omitempty" yaml:"doc_id,omitempty"`
}

func runExtract(ctx context.Context, w io.Writer, path string, opts extractOptions, log *slog.Logger) error {
	switch opts.Output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", opts.Output)
	}
	if err := opts.Titles.Validate(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	p, err := parser.ForFile(path, opts.Parser)
	if err != nil {
		return err
	}
	src, err := p.Parse(ctx, bytes.NewReader(data), filepath.Base(path))
	if err != nil {
		return err
	}
	res, err := titles.Extract(src, opts.Titles, titles.WithLogger(log))
	if err != nil {
		return err
	}

	report := extractReport{
		File:       filepath.Base(path),
		Config:     opts.Titles,
		TitleCount: res.TitleCount(),
	}
	if opts.Outline {
		report.Outline = doctree.Build(report.File, res)
	} else {
		report.Pages = res.Pages
	}

	if opts.Save {
		id, err := saveResult(ctx, opts, report.File, data, res)
		if err != nil {
			return err
		}
		report.DocID = id
		log.Info("saved document", "doc_id", id, "db", opts.DBPath)
	}

	return writeReport(w, opts.Output, report)
}

func saveResult(ctx context.Context, opts extractOptions, name string, data []byte, res titles.DocumentResult) (string, error) {
	st, err := store.New(opts.DBPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	hash := pipeline.ContentHashHex(data)
	doc := store.Document{
		ID:          hash[:16],
		Filename:    name,
		Format:      strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		ContentHash: hash,
		Config:      opts.Titles,
		StartPage:   opts.Parser.StartPage,
		EndPage:     opts.Parser.EndPage,
	}
	if err := st.SaveDocument(ctx, doc, res); err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}
	return doc.ID, nil
}

func writeReport(w io.Writer, format string, r extractReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}

	if r.Outline != nil {
		_, err := io.WriteString(w, r.Outline.String())
		return err
	}
	fmt.Fprintf(w, "%s: %d titles\n", r.File, r.TitleCount)
	for _, p := range r.Pages {
		for _, c := range p.Titles {
			fmt.Fprintf(w, "p.%d\t@%d\t%s\n", p.Number, c.Position, strings.Join(strings.Fields(c.Text), " "))
		}
	}
	if r.DocID != "" {
		fmt.Fprintf(w, "saved as %s\n", r.DocID)
	}
	return nil
}
