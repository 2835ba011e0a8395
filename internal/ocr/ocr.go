// Package ocr wraps the external text-extraction tooling (poppler's pdftotext
// and pdftoppm plus tesseract) and the in-process PDF text walker behind a
// single Engine. Every method is a pure function of its input file; the
// cascade in internal/pipeline/textextract decides which of them to call.
package ocr

import (
	"log/slog"
)

// Config carries the binary locations and tuning knobs for the engine.
// Zero values are filled in by NewEngine.
type Config struct {
	Pdftotext string
	Pdftoppm  string
	Tesseract string

	// Lang is the tesseract language pack, e.g. "eng".
	Lang string
	// TessdataDir overrides the tesseract data directory when set.
	TessdataDir string
	// PSM is tesseract's page segmentation mode. 6 assumes a uniform
	// block of text, which is what scanned forms look like.
	PSM int

	// DPI is the render resolution for the OCR pass.
	DPI int
	// VisionDPI is the render resolution for the single-page image handed
	// to the vision model. Lower than DPI to keep the payload small.
	VisionDPI int
	// MaxPages caps how many pages get rendered and recognized. 0 means
	// no cap.
	MaxPages int
}

func (c Config) withDefaults() Config {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Lang == "" {
		c.Lang = "eng"
	}
	if c.PSM == 0 {
		c.PSM = 6
	}
	if c.DPI == 0 {
		c.DPI = 200
	}
	if c.VisionDPI == 0 {
		c.VisionDPI = 150
	}
	return c
}

// Engine runs the three extraction backends over PDF files on disk.
type Engine struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

func NewEngine(cfg Config, log *slog.Logger) *Engine {
	return NewEngineWithRunner(cfg, execRunner{}, log)
}

// NewEngineWithRunner is the test seam: it lets callers substitute the
// external command runner.
func NewEngineWithRunner(cfg Config, r Runner, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg.withDefaults(), runner: r, log: log}
}
