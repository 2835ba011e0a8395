package ocr

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// RawText walks the PDF content streams directly and concatenates the plain
// text of every page, one "\n" per page. It needs no external binary but
// loses all layout, so it runs second in the cascade.
//
// The underlying parser panics on some malformed content streams; the guard
// turns that into an error so the cascade can fall through to OCR.
func (e *Engine) RawText(pdfPath string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("pdf content walk panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	var b strings.Builder
	for n := 1; n <= total; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", n, err)
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), total, nil
}
