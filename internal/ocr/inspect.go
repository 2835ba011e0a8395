package ocr

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// InspectPDF parses the document structure without rendering anything and
// returns the page count. Relaxed validation, since scanners emit PDFs that
// bend the standard but still extract fine.
func InspectPDF(content []byte) (pageCount int, err error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(content), conf)
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("resolve page tree: %w", err)
	}
	return ctx.PageCount, nil
}
