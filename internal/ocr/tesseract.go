package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/patient-intake/internal/common"
)

// Recognize runs tesseract over a single image file and returns its stdout.
// A missing binary or language pack maps to common.ErrOCRUnavailable so the
// cascade can explain how to fix the install instead of reporting a generic
// failure.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", fmt.Sprintf("%d", e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang> --psm <n>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		if binaryMissing(err, errb) || tessdataMissing(errb) {
			return "", common.WrapError(common.ErrOCRUnavailable, err.Error())
		}
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

func tessdataMissing(stderr []byte) bool {
	s := strings.ToLower(string(stderr))
	return strings.Contains(s, "error opening data file") ||
		strings.Contains(s, "failed loading language")
}

// OCRText is the last backend in the cascade: rasterize every page, clean the
// scan up, and hand each page to tesseract. Pages that come back empty are
// skipped; the rest are labeled so downstream field extraction can tell pages
// apart.
func (e *Engine) OCRText(ctx context.Context, pdfPath string) (string, int, error) {
	images, cleanup, err := e.renderPages(ctx, pdfPath, e.cfg.DPI)
	if err != nil {
		return "", 0, err
	}
	defer cleanup()

	var b strings.Builder
	recognized := 0
	for i, img := range images {
		procPath, done, err := e.preprocessToFile(img)
		if err != nil {
			e.log.Warn("ocr.page.preprocess_failed", "page", i+1, "error", err)
			procPath, done = img, func() {} // fall back to the raw render
		}

		pageText, err := e.Recognize(ctx, procPath)
		done()
		if err != nil {
			if errors.Is(err, common.ErrOCRUnavailable) {
				return "", 0, err
			}
			e.log.Warn("ocr.page.failed", "page", i+1, "error", err)
			continue
		}
		recognized++
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&b, "Page %d:\n%s\n\n", i+1, pageText)
	}

	if recognized == 0 {
		return "", 0, fmt.Errorf("ocr failed on all %d pages", len(images))
	}
	return b.String(), len(images), nil
}

// ImageText recognizes a standalone image file (the batch intake path
// accepts scans that never went through a PDF container).
func (e *Engine) ImageText(ctx context.Context, imagePath string) (string, error) {
	procPath, done, err := e.preprocessToFile(imagePath)
	if err != nil {
		e.log.Warn("ocr.image.preprocess_failed", "path", imagePath, "error", err)
		procPath, done = imagePath, func() {}
	}
	defer done()
	return e.Recognize(ctx, procPath)
}

// preprocessToFile writes the cleaned-up version of an image to a temp PNG
// and returns its path plus a cleanup func.
func (e *Engine) preprocessToFile(imagePath string) (string, func(), error) {
	img, err := imaging.Open(imagePath)
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}
	proc := Preprocess(img)

	f, err := os.CreateTemp("", "intake-proc-*.png")
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	_ = f.Close()
	if err := imaging.Save(proc, name); err != nil {
		_ = os.Remove(name)
		return "", nil, fmt.Errorf("save preprocessed image: %w", err)
	}
	return name, func() { _ = os.Remove(name) }, nil
}
