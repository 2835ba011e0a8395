package ocr

import (
	"context"
	"fmt"
	"strings"
)

// LayoutText extracts text with pdftotext in layout mode, which preserves
// the visual column alignment of the page. This is the first and cheapest
// backend in the cascade; label/value pairs on forms survive it best.
func (e *Engine) LayoutText(ctx context.Context, pdfPath string) (string, int, error) {
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix", pdfPath, "-"}

	stdout, stderr, err := e.runner.Run(ctx, e.cfg.Pdftotext, args...)
	if err != nil {
		return "", 0, fmt.Errorf("pdftotext: %w (stderr: %s)", err, truncate(string(stderr), 1<<10))
	}

	text := string(stdout)
	// pdftotext separates pages with form feeds.
	pages := strings.Count(text, "\f") + 1
	return text, pages, nil
}
