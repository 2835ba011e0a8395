// Package textextract turns PDF bytes into text through a fixed ladder of
// backends, cheapest first. Layout-preserving extraction keeps label/value
// adjacency for the field patterns; the raw content walk needs no external
// tools; OCR is the expensive last resort for scanned documents.
package textextract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/ocr"
)

// Provenance values recorded on results that came straight from a backend.
const (
	MethodLayout = "pdf_layout"
	MethodRaw    = "pdf_raw"
	MethodOCR    = "ocr_tesseract"
)

// Failure messages surfaced to callers. The install hint only appears when
// the OCR engine itself was unavailable, since that is the one failure the
// operator can fix directly.
const (
	msgNoText      = "could not extract text from PDF"
	msgInstallHint = "this appears to be an image-based PDF that requires OCR. " +
		"Install Tesseract OCR: 'sudo apt install tesseract-ocr' on Ubuntu/Debian " +
		"or 'brew install tesseract' on macOS"
)

// Backend is one extraction strategy.
type Backend struct {
	Method  string
	Extract func(ctx context.Context, pdfPath string) (text string, pages int, err error)
}

// Result is the first successful attempt. Text is kept verbatim; nothing
// downstream may see a normalized copy.
type Result struct {
	Text   string
	Method string
	Pages  int
}

// Cascade tries its backends in order and keeps the first whose trimmed
// output is non-empty.
type Cascade struct {
	backends []Backend
	log      *slog.Logger
}

// NewCascade wires the standard three-backend ladder over an OCR engine.
func NewCascade(engine *ocr.Engine, log *slog.Logger) *Cascade {
	return NewCascadeWithBackends([]Backend{
		{Method: MethodLayout, Extract: engine.LayoutText},
		{Method: MethodRaw, Extract: func(_ context.Context, path string) (string, int, error) {
			return engine.RawText(path)
		}},
		{Method: MethodOCR, Extract: engine.OCRText},
	}, log)
}

// NewCascadeWithBackends exists for tests and nonstandard ladders.
func NewCascadeWithBackends(backends []Backend, log *slog.Logger) *Cascade {
	if log == nil {
		log = slog.Default()
	}
	return &Cascade{backends: backends, log: log}
}

// Extract returns the first non-empty extraction. When every backend fails
// the error wraps common.ErrTextExtraction; the message carries the
// Tesseract install hint if OCR was unavailable.
func (c *Cascade) Extract(ctx context.Context, pdfPath string) (Result, error) {
	var failures []string
	ocrUnavailable := false

	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		text, pages, err := b.Extract(ctx, pdfPath)
		if err != nil {
			if errors.Is(err, common.ErrOCRUnavailable) {
				ocrUnavailable = true
			}
			c.log.Warn("textextract.backend.failed", "method", b.Method, "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", b.Method, err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			c.log.Warn("textextract.backend.empty", "method", b.Method)
			failures = append(failures, b.Method+": no text content")
			continue
		}

		c.log.Info("textextract.ok", "method", b.Method, "pages", pages, "chars", len(text))
		return Result{Text: text, Method: b.Method, Pages: pages}, nil
	}

	msg := msgNoText
	if ocrUnavailable {
		msg += ": " + msgInstallHint
	}
	if len(failures) > 0 {
		msg += " (" + strings.Join(failures, "; ") + ")"
	}
	return Result{}, common.WrapError(common.ErrTextExtraction, msg)
}
