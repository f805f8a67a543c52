package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/titlegest/internal/textstream"
)

// Parser turns raw document bytes into a positioned text stream.
type Parser interface {
	Parse(ctx context.Context, r io.Reader, filename string) (textstream.Source, error)
}

// Options controls how documents are turned into token streams.
type Options struct {
	// Page range for paged formats, 1-based and inclusive. Zero means
	// unbounded.
	StartPage int
	EndPage   int

	// Nominal heights for formats that carry structure instead of glyph
	// sizes (markdown, html, docx, plain text).
	BodySize     float64
	HeadingSizes [6]float64
}

// DefaultOptions returns the nominal point sizes used for structural formats.
func DefaultOptions() Options {
	return Options{
		BodySize:     10,
		HeadingSizes: [6]float64{24, 18, 14, 12, 11, 10.5},
	}
}

// headingSize returns the nominal height for a heading level (1-6).
func (o Options) headingSize(level int) float64 {
	if level < 1 {
		return o.BodySize
	}
	if level > len(o.HeadingSizes) {
		level = len(o.HeadingSizes)
	}
	if h := o.HeadingSizes[level-1]; h > 0 {
		return h
	}
	return o.BodySize
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".xlsx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{Options: opts}, nil
	case ".md", ".markdown":
		return &MarkdownParser{Options: opts}, nil
	case ".html", ".htm":
		return &HTMLParser{Options: opts}, nil
	case ".pdf":
		return &PDFParser{Options: opts}, nil
	case ".docx":
		return &DOCXParser{Options: opts}, nil
	case ".xlsx":
		return &XLSXParser{Options: opts}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// pageInRange reports whether page n (1-based) falls inside the options'
// page range.
func (o Options) pageInRange(n int) bool {
	if o.StartPage > 0 && n < o.StartPage {
		return false
	}
	if o.EndPage > 0 && n > o.EndPage {
		return false
	}
	return true
}
