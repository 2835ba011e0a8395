package processor

import (
	"context"
	"encoding/json"

	"github.com/joseph-ayodele/patient-intake/internal/llm"
	"github.com/joseph-ayodele/patient-intake/internal/pipeline/parsefields"
)

// reanalyzeText asks the reasoning service to read the full document text
// itself instead of trusting the pattern extraction. Returns false when the
// request failed or the reply carried no usable object; the caller then just
// keeps its current candidate.
func (p *Processor) reanalyzeText(ctx context.Context, text string) (parsefields.Fields, bool) {
	raw, err := p.reasoner.Complete(ctx, llm.BuildTextAnalysisPrompt(text))
	if err != nil {
		p.log.Warn("process.text_analysis_failed", "error", err)
		return parsefields.Fields{}, false
	}
	fields, ok := parseAnalysisResponse(raw)
	if !ok {
		p.log.Warn("process.text_analysis_malformed", "preview", previewText(raw))
	}
	return fields, ok
}

// visionProvider yields the image payload for the vision step. Providers
// may refuse when no usable page image exists.
type visionProvider func(ctx context.Context) (string, error)

// reanalyzeVision obtains a page image and sends it to the multimodal
// model. The costliest step, so it only runs after text reanalysis left
// quality below the vision threshold.
func (p *Processor) reanalyzeVision(ctx context.Context, vision visionProvider) (parsefields.Fields, bool) {
	dataURL, err := vision(ctx)
	if err != nil {
		p.log.Warn("process.vision_render_failed", "error", err)
		return parsefields.Fields{}, false
	}

	raw, err := p.reasoner.CompleteWithImage(ctx, llm.VisionAnalysisPrompt, dataURL)
	if err != nil {
		p.log.Warn("process.vision_analysis_failed", "error", err)
		return parsefields.Fields{}, false
	}
	fields, ok := parseAnalysisResponse(raw)
	if !ok {
		p.log.Warn("process.vision_analysis_malformed", "preview", previewText(raw))
	}
	return fields, ok
}

// parseAnalysisResponse reads the three-field shape out of a completion.
// The model's self-reported confidence_score is deliberately dropped; the
// rubric is the only score source.
func parseAnalysisResponse(raw string) (parsefields.Fields, bool) {
	obj, err := llm.FirstJSONObject(raw)
	if err != nil {
		return parsefields.Fields{}, false
	}
	if err := llm.ValidateJSONAgainstSchema(llm.BuildAnalysisJSONSchema(), obj); err != nil {
		return parsefields.Fields{}, false
	}
	var res llm.AnalysisResult
	if err := json.Unmarshal(obj, &res); err != nil {
		return parsefields.Fields{}, false
	}

	opt := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	return parsefields.Fields{
		FirstName:   opt(res.FirstName),
		LastName:    opt(res.LastName),
		DateOfBirth: opt(res.DateOfBirth),
	}, true
}
