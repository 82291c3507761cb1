package collab

import (
	"context"
	"errors"
	"time"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/pipeline"
	"shorts_farm/internal/timeline"
)

// RenderConfig cấu hình gửi job render
type RenderConfig struct {
	ServeURL       string // Bundle composition đã deploy
	WebhookURL     string // Rỗng thì chỉ dựa vào poller
	WebhookSecret  string
	FramesPerChunk int
	Timeout        time.Duration
	MaxRetries     int
}

// RenderService client của dịch vụ render composition, vừa gửi job vừa đọc tiến độ
type RenderService struct {
	client *Client
	cfg    RenderConfig
}

// NewRenderService tạo client
func NewRenderService(client *Client, cfg RenderConfig) *RenderService {
	if cfg.FramesPerChunk <= 0 {
		cfg.FramesPerChunk = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	return &RenderService{client: client, cfg: cfg}
}

type renderCharacter struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RenderData input props gửi cho composition
type RenderData struct {
	Script        *models.Script    `json:"script"`
	Timeline      timeline.Timeline `json:"timeline"`
	BackgroundURL string            `json:"backgroundUrl"`
	Characters    []renderCharacter `json:"characters"`
}

type renderWebhook struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

type renderSubmitRequest struct {
	ServeURL         string                `json:"serveUrl"`
	Composition      string                `json:"composition"`
	InputProps       map[string]RenderData `json:"inputProps"`
	Codec            string                `json:"codec"`
	Privacy          string                `json:"privacy"`
	MaxRetries       int                   `json:"maxRetries"`
	FramesPerLambda  int                   `json:"framesPerLambda"`
	TimeoutInMs      int64                 `json:"timeoutInMilliseconds"`
	Width            int                   `json:"width"`
	Height           int                   `json:"height"`
	FPS              int                   `json:"fps"`
	DurationInFrames int                   `json:"durationInFrames"`
	Webhook          *renderWebhook        `json:"webhook,omitempty"`
}

type renderSubmitResponse struct {
	RenderID   string `json:"renderId"`
	BucketName string `json:"bucketName"`
}

// Submit gửi job và trả về ngay với renderId/bucket
func (r *RenderService) Submit(ctx context.Context, req pipeline.RenderRequest) (*pipeline.RenderJob, error) {
	chars := make([]renderCharacter, 0, len(req.Characters))
	for _, c := range req.Characters {
		chars = append(chars, renderCharacter{ID: c.ID.Hex(), Name: c.Name})
	}
	body := renderSubmitRequest{
		ServeURL:    r.cfg.ServeURL,
		Composition: req.Timeline.CompositionID,
		InputProps: map[string]RenderData{"renderData": {
			Script:        req.Script,
			Timeline:      req.Timeline,
			BackgroundURL: req.BackgroundURL,
			Characters:    chars,
		}},
		Codec:            "h264",
		Privacy:          "public",
		MaxRetries:       r.cfg.MaxRetries,
		FramesPerLambda:  r.cfg.FramesPerChunk,
		TimeoutInMs:      r.cfg.Timeout.Milliseconds(),
		Width:            req.Timeline.Width,
		Height:           req.Timeline.Height,
		FPS:              req.Timeline.FPS,
		DurationInFrames: req.Timeline.TotalFrames,
	}
	if r.cfg.WebhookURL != "" {
		body.Webhook = &renderWebhook{URL: r.cfg.WebhookURL, Secret: r.cfg.WebhookSecret}
	}

	var resp renderSubmitResponse
	if err := r.client.DoJSON(ctx, "POST", "/renders", body, &resp); err != nil {
		return nil, err
	}
	if resp.RenderID == "" {
		return nil, errors.New("render service returned no render id")
	}
	return &pipeline.RenderJob{JobID: resp.RenderID, Bucket: resp.BucketName}, nil
}

type renderProgressResponse struct {
	Done                  bool    `json:"done"`
	OverallProgress       float64 `json:"overallProgress"`
	OutputFile            string  `json:"outputFile"`
	FatalErrorEncountered bool    `json:"fatalErrorEncountered"`
	TimedOut              bool    `json:"timedOut"`
	Errors                []struct {
		Message string `json:"message"`
		IsFatal bool   `json:"isFatal"`
	} `json:"errors"`
}

// Progress đọc tiến độ job; nil khi job còn đang chạy
func (r *RenderService) Progress(ctx context.Context, jobID, bucket string) (*pipeline.RenderOutcome, error) {
	var resp renderProgressResponse
	err := r.client.DoJSON(ctx, "POST", "/progress", map[string]string{
		"renderId":   jobID,
		"bucketName": bucket,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return progressOutcome(resp), nil
}

func progressOutcome(resp renderProgressResponse) *pipeline.RenderOutcome {
	switch {
	case resp.TimedOut:
		return &pipeline.RenderOutcome{Kind: pipeline.RenderTimedOut}
	case resp.FatalErrorEncountered:
		var msgs []string
		for _, e := range resp.Errors {
			if e.IsFatal {
				msgs = append(msgs, e.Message)
			}
		}
		return &pipeline.RenderOutcome{Kind: pipeline.RenderFailed, Errors: msgs}
	case resp.Done:
		return &pipeline.RenderOutcome{Kind: pipeline.RenderSucceeded, OutputURL: resp.OutputFile}
	}
	return nil
}
