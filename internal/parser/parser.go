package parser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned by ForFile for unknown file extensions.
var ErrUnsupported = errors.New("unsupported file extension")

// Document is the normalized text of one source file together with the
// flat token stream describing it. Token line ranges index into Text.
type Document struct {
	Title  string
	Format string
	Text   string
	Tokens []Token
}

// Tokenizer converts raw document bytes into a Document.
type Tokenizer interface {
	Tokenize(r io.Reader, filename string) (*Document, error)
}

// Options tune tokenizer construction.
type Options struct {
	// PDFFallback shells out to pdftotext when the native PDF reader fails.
	PDFFallback bool
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate tokenizer for a filename.
func ForFile(filename string, opts Options) (Tokenizer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextTokenizer{}, nil
	case ".md", ".markdown":
		return NewMarkdownTokenizer(), nil
	case ".csv":
		return &CSVTokenizer{}, nil
	case ".html", ".htm":
		return &HTMLTokenizer{}, nil
	case ".pdf":
		return &PDFTokenizer{FallbackPdftotext: opts.PDFFallback}, nil
	case ".docx":
		return &DOCXTokenizer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// titleFromFilename strips directories and the extension.
func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
