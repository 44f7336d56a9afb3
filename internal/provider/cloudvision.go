package provider

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	vision "google.golang.org/api/vision/v1"

	"github.com/sells-group/labeleval/internal/prompt"
)

type cloudVisionService struct {
	pipeline
	svc *vision.Service
}

// NewCloudVision creates the Google Cloud Vision adapter. Unlike the
// generative providers it is OCR-only: detected text is run through a
// heuristic section parser and the prompt is unused. svc may be nil when
// the provider is unconfigured.
func NewCloudVision(settings Settings, prompts *prompt.Cache, svc *vision.Service) Service {
	s := &cloudVisionService{svc: svc}
	s.pipeline = pipeline{
		id:       CloudVision,
		display:  "Google Cloud Vision",
		settings: settings,
		prompts:  prompts,
		call:     s.callAPI,
	}
	return s
}

func (s *cloudVisionService) callAPI(ctx context.Context, imageB64, _ string, _ string) (callResult, error) {
	if s.svc == nil {
		return callResult{}, eris.New("cloudvision: service not initialized")
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{Content: imageB64},
				Features: []*vision.Feature{
					// Document detection handles dense label text best.
					{Type: "DOCUMENT_TEXT_DETECTION", MaxResults: 1},
					{Type: "TEXT_DETECTION", MaxResults: 50},
				},
			},
		},
	}

	resp, err := s.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return callResult{}, eris.Wrap(err, "cloudvision: annotate")
	}
	if len(resp.Responses) == 0 {
		return callResult{}, eris.New("cloudvision: no annotations in response")
	}

	ann := resp.Responses[0]
	if ann.Error != nil {
		return callResult{}, eris.Errorf("cloudvision: %s", ann.Error.Message)
	}

	text := ""
	if ann.FullTextAnnotation != nil {
		text = ann.FullTextAnnotation.Text
	}
	if text == "" && len(ann.TextAnnotations) > 0 {
		text = ann.TextAnnotations[0].Description
	}
	if text == "" {
		return callResult{}, eris.New("cloudvision: no text detected in image")
	}

	// Segment the raw OCR text into the shared record shape, then hand it
	// to the pipeline as JSON like any generative answer.
	data := ParseOCRText(text)
	encoded, err := json.Marshal(data)
	if err != nil {
		return callResult{}, eris.Wrap(err, "cloudvision: marshal parsed text")
	}

	return callResult{text: string(encoded)}, nil
}
