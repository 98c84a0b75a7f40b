package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFTokenizer handles PDF files. It tries the Go library first, then
// falls back to pdftotext when enabled. Each page becomes a page container
// holding its paragraphs.
type PDFTokenizer struct {
	FallbackPdftotext bool
}

func (p *PDFTokenizer) Tokenize(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	text, err := extractPDFText(data)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	b := &builder{}
	for i, page := range splitPages(Normalize([]byte(text))) {
		paras := splitParagraphs(page)
		if len(paras) == 0 {
			continue
		}
		b.blank()
		idx := b.open("page", "section", span(b.line, b.line), "id", "page-"+strconv.Itoa(i+1))
		for _, para := range paras {
			b.paragraph(para)
		}
		b.close(idx, b.line)
	}
	return b.document(titleFromFilename(filename), "pdf"), nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

// extractPdftotext writes data to a temp file because pdftotext needs a path.
func extractPdftotext(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "doxstrux-pdf-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	cmd := exec.Command("pdftotext", "-layout", tmp.Name(), "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}

// splitParagraphs splits on blank or whitespace-only lines.
func splitParagraphs(text string) []string {
	var out, cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.Join(cur, "\n"))
			cur = cur[:0]
		}
	}
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(l, " \t"))
	}
	flush()
	return out
}
