package processor

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/patient-intake/constants"
	"github.com/joseph-ayodele/patient-intake/internal/common"
	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/parsefields"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/textextract"
)

// Escalation gates. Quality below the first threshold triggers text
// reanalysis; quality still below the second afterwards triggers vision.
const (
	qualityTextThreshold   = 0.7
	qualityVisionThreshold = 0.6
)

// TextSource yields extracted text for a document on disk.
type TextSource interface {
	Extract(ctx context.Context, pdfPath string) (textextract.Result, error)
}

// ImageSource runs OCR over a single page scan.
type ImageSource interface {
	ImageText(ctx context.Context, imagePath string) (string, error)
}

// PageImager renders the first page as a data URL for the vision step.
type PageImager interface {
	FirstPageDataURL(ctx context.Context, pdfPath string) (string, error)
}

// Processor drives one document through extraction, field parsing, scoring,
// validation and the escalation ladder. It holds no per-document state, so a
// single instance serves concurrent callers.
type Processor struct {
	source    TextSource
	images    ImageSource
	imager    PageImager
	reasoner  llm.Reasoner
	validator *Validator
	enableAI  bool
	log       *slog.Logger
}

// NewProcessor wires the pipeline. reasoner may be nil; every AI step is
// then skipped and results carry pure pattern provenance.
func NewProcessor(source TextSource, images ImageSource, imager PageImager, reasoner llm.Reasoner, enableAI bool, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		source:    source,
		images:    images,
		imager:    imager,
		reasoner:  reasoner,
		validator: NewValidator(reasoner, log),
		enableAI:  enableAI,
		log:       log,
	}
}

// Process runs the full pipeline over raw PDF bytes. useAI is the per-call
// permission; it can only narrow the processor-level setting, never widen
// it. The returned result is always non-nil unless err is set; an
// extraction failure is reported inside the result (success=false), not as
// an error.
func (p *Processor) Process(ctx context.Context, content []byte, filename string, useAI bool) (*ProcessingResult, error) {
	start := time.Now()
	log := p.log.With("file", filename, "req_id", common.RequestIDFromContext(ctx))

	aiOn := useAI && p.enableAI && p.reasoner != nil

	tmpPath, cleanup, err := writeTemp(content, "pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	extracted, err := p.source.Extract(ctx, tmpPath)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("process.extract_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return failureResult(err, start), nil
	}
	log.Info("process.extracted", "method", extracted.Method, "pages", extracted.Pages)

	var vision visionProvider
	if p.imager != nil {
		vision = func(vctx context.Context) (string, error) {
			return p.imager.FirstPageDataURL(vctx, tmpPath)
		}
	}
	return p.finish(ctx, log, start, extracted.Text, extracted.Method, vision, aiOn), nil
}

// ProcessImage runs the OCR leg over a single page scan (jpg/jpeg/png) and
// continues through the same parsing, validation and escalation path as
// PDFs. The scan itself doubles as the vision payload.
func (p *Processor) ProcessImage(ctx context.Context, content []byte, filename string, useAI bool) (*ProcessingResult, error) {
	start := time.Now()
	log := p.log.With("file", filename, "req_id", common.RequestIDFromContext(ctx))

	ext := constants.NormalizeExt(filepath.Ext(filename))
	if constants.MapExtToFormat(ext) != constants.IMAGE {
		return nil, common.WrapError(common.ErrInvalidInput, "unsupported image extension: "+ext)
	}
	if p.images == nil {
		return nil, common.WrapError(common.ErrOCRUnavailable, "no OCR engine configured for image intake")
	}

	aiOn := useAI && p.enableAI && p.reasoner != nil

	tmpPath, cleanup, err := writeTemp(content, ext)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	text, err := p.images.ImageText(ctx, tmpPath)
	if err == nil && strings.TrimSpace(text) == "" {
		err = common.WrapError(common.ErrTextExtraction, "could not extract text from image")
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error("process.extract_failed", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return failureResult(err, start), nil
	}
	log.Info("process.extracted", "method", textextract.MethodOCR, "pages", 1)

	vision := func(context.Context) (string, error) {
		if len(content) > constants.MaxVisionBytes {
			return "", errors.New("image exceeds vision payload limit")
		}
		return llm.DataURL(content, ext), nil
	}
	return p.finish(ctx, log, start, text, textextract.MethodOCR, vision, aiOn), nil
}

// ValidateFields extracts text from the document and asks the reasoning
// service to check the supplied candidate fields against it. The escalation
// ladder is not involved; the caller gets the raw validation verdict.
func (p *Processor) ValidateFields(ctx context.Context, content []byte, fields parsefields.Fields) (*ValidationSummary, error) {
	if p.reasoner == nil || !p.enableAI {
		return nil, common.WrapError(common.ErrReasoningUnavailable, "AI validation service is not available")
	}

	tmpPath, cleanup, err := writeTemp(content, "pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	extracted, err := p.source.Extract(ctx, tmpPath)
	if err != nil {
		return nil, err
	}

	_, summary := p.validator.Validate(ctx, extracted.Text, fields)
	if summary == nil {
		return nil, common.WrapError(common.ErrReasoningUnavailable, "AI validation service is not available")
	}
	return summary, nil
}

// finish carries extracted text through parsing, scoring, validation and
// escalation, and assembles the result.
func (p *Processor) finish(ctx context.Context, log *slog.Logger, start time.Time, text, baseMethod string, vision visionProvider, aiOn bool) *ProcessingResult {
	fields := parsefields.Extract(text)
	confidence := parsefields.Score(fields)
	method := baseMethod
	var summary *ValidationSummary

	if aiOn {
		corrected, s := p.validator.Validate(ctx, text, fields)
		if s != nil {
			summary = s
			fields = corrected
			confidence = math.Max(parsefields.Score(corrected), confidence)
			method += SuffixAIValidated
			if len(s.CorrectionsApplied) > 0 {
				log.Info("process.validation_corrected", "corrections", len(s.CorrectionsApplied))
			} else {
				log.Info("process.validation_confirmed")
			}
		}

		quality := confidence
		if summary != nil {
			quality = summary.OverallValidation.DataQualityScore
		}

		if quality < qualityTextThreshold {
			log.Info("process.reanalyze_text", "quality", quality)
			if candidate, ok := p.reanalyzeText(ctx, text); ok {
				if c := parsefields.Score(candidate); c > confidence {
					fields, confidence, method = candidate, c, MethodAITextEnhanced
					log.Info("process.text_analysis_adopted", "confidence", c)
					// revalidate for the audit trail; fields and score stand
					if _, s2 := p.validator.Validate(ctx, text, fields); s2 != nil {
						summary = s2
					}
				}
			}

			quality = confidence
			if summary != nil {
				quality = summary.OverallValidation.DataQualityScore
			}

			if quality < qualityVisionThreshold {
				log.Info("process.reanalyze_vision", "quality", quality)
				if vision == nil {
					log.Warn("process.vision_unavailable")
				} else if candidate, ok := p.reanalyzeVision(ctx, vision); ok {
					if c := parsefields.Score(candidate); c > confidence {
						fields, confidence, method = candidate, c, MethodAIVisionEnhanced
						log.Info("process.vision_analysis_adopted", "confidence", c)
						if _, s2 := p.validator.Validate(ctx, text, fields); s2 != nil {
							summary = s2
						}
					}
				}
			}
		}
	}

	result := &ProcessingResult{
		Success:              true,
		PatientInfo:          patientInfoFromFields(fields),
		ExtractionMethod:     method,
		ConfidenceScore:      confidence,
		ExtractedTextPreview: previewText(text),
		ProcessingTimeMS:     time.Since(start).Milliseconds(),
		Validation:           summary,
		Timestamp:            time.Now().UTC(),
	}
	log.Info("process.done",
		"method", method,
		"confidence", confidence,
		"elapsed_ms", result.ProcessingTimeMS,
	)
	return result
}

func failureResult(err error, start time.Time) *ProcessingResult {
	return &ProcessingResult{
		Success:          false,
		Error:            err.Error(),
		ExtractionMethod: MethodError,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}

// writeTemp spills the upload to disk for the tools that want a path.
func writeTemp(content []byte, ext string) (string, func(), error) {
	f, err := os.CreateTemp("", "intake-doc-*."+ext)
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", nil, err
	}
	return name, func() { _ = os.Remove(name) }, nil
}
