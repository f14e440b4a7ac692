// Package pdf extracts text from receipt PDFs. Extraction runs through a
// primary/fallback engine pair because neither library reads every receipt
// the permit site produces; an engine returning empty text is tolerated and
// the next one is tried.
package pdf

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Engine extracts plain text from a PDF file.
type Engine interface {
	Name() string
	ExtractText(path string) (string, error)
}

// LedongthucEngine is the primary engine; it produces the cleanest plain text
// for the receipts observed so far.
type LedongthucEngine struct{}

func (LedongthucEngine) Name() string { return "ledongthuc" }

// ExtractText reads all pages and concatenates their plain text.
func (LedongthucEngine) ExtractText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			// Keep going; a partial read may still contain the fields.
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// Chain tries engines in order and returns the first non-empty text. All
// engines coming back empty is not an error; the caller decides what an
// empty document means.
type Chain struct {
	engines []Engine
	log     *slog.Logger
}

// NewChain builds an extraction chain. With no engines given it uses the
// default primary/fallback pair.
func NewChain(log *slog.Logger, engines ...Engine) *Chain {
	if len(engines) == 0 {
		engines = []Engine{LedongthucEngine{}, PDFCPUEngine{}}
	}
	return &Chain{engines: engines, log: log}
}

// ExtractText runs the chain. It returns an error only when every engine
// failed outright; empty text from a succeeding engine falls through to the
// next one.
func (c *Chain) ExtractText(path string) (string, error) {
	var lastErr error
	for _, e := range c.engines {
		text, err := e.ExtractText(path)
		if err != nil {
			c.log.Debug("extraction engine failed", "engine", e.Name(), "error", err)
			lastErr = err
			continue
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		c.log.Debug("extraction engine returned empty text", "engine", e.Name())
	}

	if lastErr != nil {
		return "", fmt.Errorf("all extraction engines failed: %w", lastErr)
	}
	return "", nil
}
