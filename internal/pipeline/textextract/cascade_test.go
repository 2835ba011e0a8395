package textextract

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/patient-intake/internal/common"
)

func backendReturning(method, text string, pages int, err error, calls *[]string) Backend {
	return Backend{
		Method: method,
		Extract: func(_ context.Context, _ string) (string, int, error) {
			*calls = append(*calls, method)
			return text, pages, err
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCascadeFirstBackendWins(t *testing.T) {
	var calls []string
	c := NewCascadeWithBackends([]Backend{
		backendReturning(MethodLayout, "layout text", 3, nil, &calls),
		backendReturning(MethodRaw, "raw text", 3, nil, &calls),
	}, testLogger())

	res, err := c.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "layout text", res.Text)
	assert.Equal(t, MethodLayout, res.Method)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{MethodLayout}, calls, "later backends must not run")
}

func TestCascadeFallsThroughOnErrorAndEmpty(t *testing.T) {
	var calls []string
	c := NewCascadeWithBackends([]Backend{
		backendReturning(MethodLayout, "", 0, errors.New("pdftotext exited 1"), &calls),
		backendReturning(MethodRaw, "   \n\t ", 2, nil, &calls),
		backendReturning(MethodOCR, "Page 1:\nscanned words\n\n", 1, nil, &calls),
	}, testLogger())

	res, err := c.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, "Page 1:\nscanned words\n\n", res.Text, "winning text is kept verbatim")
	assert.Equal(t, []string{MethodLayout, MethodRaw, MethodOCR}, calls)
}

func TestCascadeAllFail(t *testing.T) {
	var calls []string
	c := NewCascadeWithBackends([]Backend{
		backendReturning(MethodLayout, "", 0, errors.New("exec: not found"), &calls),
		backendReturning(MethodRaw, "", 0, errors.New("bad xref"), &calls),
		backendReturning(MethodOCR, "", 0, errors.New("render failed"), &calls),
	}, testLogger())

	_, err := c.Extract(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTextExtraction)
	assert.Contains(t, err.Error(), "could not extract text from PDF")
	assert.Contains(t, err.Error(), "pdf_layout: exec: not found")
	assert.Contains(t, err.Error(), "pdf_raw: bad xref")
	assert.Contains(t, err.Error(), "ocr_tesseract: render failed")
	assert.NotContains(t, err.Error(), "Install Tesseract", "hint is reserved for a missing OCR engine")
}

func TestCascadeInstallHintWhenOCRUnavailable(t *testing.T) {
	var calls []string
	c := NewCascadeWithBackends([]Backend{
		backendReturning(MethodLayout, "", 0, nil, &calls),
		backendReturning(MethodOCR, "", 0, common.WrapError(common.ErrOCRUnavailable, "tesseract not on PATH"), &calls),
	}, testLogger())

	_, err := c.Extract(context.Background(), "scan.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrTextExtraction)
	assert.Contains(t, err.Error(), "Install Tesseract OCR")
	assert.Contains(t, err.Error(), "pdf_layout: no text content")
}

func TestCascadeHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls []string
	c := NewCascadeWithBackends([]Backend{
		backendReturning(MethodLayout, "text", 1, nil, &calls),
	}, testLogger())

	_, err := c.Extract(ctx, "doc.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}
