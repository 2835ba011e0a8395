package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/disintegration/imaging"
)

const visionJPEGQuality = 85

// renderPages rasterizes the PDF to one PNG per page with pdftoppm. The
// caller must invoke cleanup to drop the temp directory.
func (e *Engine) renderPages(ctx context.Context, pdfPath string, dpi int) (images []string, cleanup func(), err error) {
	tmpDir, err := os.MkdirTemp("", "intake-pp-*")
	if err != nil {
		return nil, nil, err
	}
	cleanup = func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.log.Warn("ocr.tmpdir.remove_failed", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", dpi), "-png", pdfPath, prefix)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm: %w (stderr: %s)", err, truncate(string(errb), 1<<10))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("pdftoppm produced no images")
	}
	return matches, cleanup, nil
}

// FirstPageDataURL renders only the first page at the vision resolution,
// re-encodes it as JPEG and returns it as a base64 data URL suitable for a
// multimodal chat message.
func (e *Engine) FirstPageDataURL(ctx context.Context, pdfPath string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "intake-vision-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.log.Warn("ocr.tmpdir.remove_failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", e.cfg.VisionDPI), "-png", "-f", "1", "-l", "1", pdfPath, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w (stderr: %s)", err, truncate(string(errb), 1<<10))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", fmt.Errorf("pdftoppm produced no first-page image")
	}

	img, err := imaging.Open(matches[0])
	if err != nil {
		return "", fmt.Errorf("decode rendered page: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(visionJPEGQuality)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
