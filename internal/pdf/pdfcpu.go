package pdf

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFCPUEngine is the fallback engine. pdfcpu has no plain-text extraction of
// its own, so this engine pulls the page content streams and recovers the
// string operands of the text-showing operators. The output is rougher than
// the primary engine's but label/value lines survive, which is all the field
// extractor needs.
type PDFCPUEngine struct{}

func (PDFCPUEngine) Name() string { return "pdfcpu" }

// ExtractText extracts text operator strings from every page content stream.
func (PDFCPUEngine) ExtractText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return "", fmt.Errorf("failed to resolve page count: %w", err)
	}

	var builder strings.Builder
	for pageNum := 1; pageNum <= ctx.PageCount; pageNum++ {
		r, err := pdfcpu.ExtractPageContent(ctx, pageNum)
		if err != nil || r == nil {
			continue
		}
		content, err := io.ReadAll(r)
		if err != nil {
			continue
		}
		builder.WriteString(textFromContentStream(content))
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// textFromContentStream scans a decoded content stream for string literals and
// emits them in order, breaking lines at the text-positioning operators
// (Td, TD, T*) so label/value pairs keep their layout.
func textFromContentStream(stream []byte) string {
	var out strings.Builder

	i := 0
	for i < len(stream) {
		switch stream[i] {
		case '(':
			literal, next := readStringLiteral(stream, i)
			out.WriteString(literal)
			i = next
		case 'T':
			// Peek at a possible positioning operator.
			if i+1 < len(stream) {
				switch stream[i+1] {
				case 'd', 'D', '*':
					out.WriteString("\n")
					i += 2
					continue
				}
			}
			i++
		default:
			i++
		}
	}

	return out.String()
}

// readStringLiteral consumes a PDF string literal starting at the opening
// parenthesis, handling escapes and balanced nested parentheses. It returns
// the decoded text and the index just past the closing parenthesis.
func readStringLiteral(stream []byte, start int) (string, int) {
	var out strings.Builder
	depth := 0
	i := start
	for i < len(stream) {
		c := stream[i]
		switch c {
		case '\\':
			if i+1 < len(stream) {
				out.WriteString(unescape(stream[i+1]))
				i += 2
				continue
			}
			i++
		case '(':
			depth++
			if depth > 1 {
				out.WriteByte(c)
			}
			i++
		case ')':
			depth--
			if depth == 0 {
				return out.String(), i + 1
			}
			out.WriteByte(c)
			i++
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), i
}

func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 'r':
		return "\r"
	case 't':
		return "\t"
	case '(', ')', '\\':
		return string(c)
	default:
		return string(c)
	}
}
