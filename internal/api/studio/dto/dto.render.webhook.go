package studiodto

import (
	"shorts_farm/internal/pipeline"
)

// RenderWebhookError lỗi trong payload webhook
type RenderWebhookError struct {
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}

// RenderWebhookPayload payload dịch vụ render gửi về khi job kết thúc
type RenderWebhookPayload struct {
	Type       string               `json:"type"` // success / error / timeout
	RenderID   string               `json:"renderId"`
	BucketName string               `json:"bucketName,omitempty"`
	OutputURL  string               `json:"outputUrl,omitempty"`
	OutputFile string               `json:"outputFile,omitempty"`
	Errors     []RenderWebhookError `json:"errors,omitempty"`
}

// Outcome đổi payload sang RenderOutcome; outputFile được ưu tiên hơn outputUrl
func (p *RenderWebhookPayload) Outcome() pipeline.RenderOutcome {
	out := pipeline.RenderOutcome{Kind: pipeline.RenderOutcomeKind(p.Type)}
	out.OutputURL = p.OutputFile
	if out.OutputURL == "" {
		out.OutputURL = p.OutputURL
	}
	for _, e := range p.Errors {
		out.Errors = append(out.Errors, e.Message)
	}
	return out
}
