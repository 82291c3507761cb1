package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
)

// RenderOutcomeKind loại kết quả của job render
type RenderOutcomeKind string

const (
	RenderSucceeded RenderOutcomeKind = "success"
	RenderFailed    RenderOutcomeKind = "error"
	RenderTimedOut  RenderOutcomeKind = "timeout"
)

// Thông điệp lỗi ghi lên project khi render không thành công
const (
	MsgRenderNoOutput = "Webhook success but no output URL."
	MsgRenderTimeout  = "Render timed out."
	msgRenderFailed   = "Render failed: "
	msgRenderUnknown  = "Unknown rendering error"
)

// RenderOutcome kết quả job render, từ webhook hoặc từ poller
type RenderOutcome struct {
	Kind      RenderOutcomeKind `json:"type"`
	OutputURL string            `json:"outputUrl,omitempty"`
	Errors    []string          `json:"errors,omitempty"`
}

// RenderFailureMessage statusMessage tương ứng với một job thất bại
func RenderFailureMessage(errs []string) string {
	var parts []string
	for _, e := range errs {
		if s := strings.TrimSpace(e); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return msgRenderFailed + msgRenderUnknown
	}
	return msgRenderFailed + strings.Join(parts, "; ")
}

// ReportRenderOutcome điểm hội tụ duy nhất cho kết quả render (webhook và poller).
// Chỉ có tác dụng khi project còn ở rendering; báo lại cho project đã xong là no-op.
func (o *Orchestrator) ReportRenderOutcome(ctx context.Context, jobID string, outcome RenderOutcome) error {
	log := logger.GetAppLogger()

	p, err := o.deps.Projects.FindProjectByRenderID(ctx, jobID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrUnknownRenderJob
		}
		return err
	}

	fields := map[string]interface{}{
		"projectId": p.ID.Hex(),
		"renderId":  jobID,
		"outcome":   outcome.Kind,
	}
	if p.Status != models.ProjectStatusRendering {
		log.WithFields(fields).WithField("status", p.Status).Info("🎞️ [RENDER] Bỏ qua kết quả render, project không còn ở rendering")
		return nil
	}

	switch outcome.Kind {
	case RenderSucceeded:
		if strings.TrimSpace(outcome.OutputURL) == "" {
			if err := o.fail(ctx, p, MsgRenderNoOutput); err != nil {
				return err
			}
			return common.ValidationError(MsgRenderNoOutput)
		}
		video, err := o.deps.Videos.CreateVideo(ctx, &models.Video{
			ProjectID: p.ID,
			FinalURL:  outcome.OutputURL,
			RenderID:  jobID,
		})
		if err != nil {
			return err
		}
		if err := o.deps.Projects.AttachVideo(ctx, p.ID, jobID, video.ID); err != nil {
			// Video chưa gắn vào project nào thì không được để lại
			if derr := o.deps.Videos.DeleteVideo(ctx, video.ID); derr != nil {
				log.WithFields(fields).WithError(derr).Error("🎞️ [RENDER] Không xóa được video mồ côi")
			}
			if errors.Is(err, common.ErrInvalidState) {
				// Báo cáo khác đã gắn video trước
				log.WithFields(fields).Warn("🎞️ [RENDER] Project đã đổi trạng thái trong lúc gắn video")
				return nil
			}
			return err
		}
		log.WithFields(fields).WithField("videoId", video.ID.Hex()).Info("🎞️ [RENDER] Render thành công, project done")
		o.launchPostRender(ctx, p.ID, video.ID, outcome.OutputURL)
		return nil

	case RenderFailed:
		log.WithFields(fields).WithField("errors", outcome.Errors).Error("🎞️ [RENDER] Render thất bại")
		return o.fail(ctx, p, RenderFailureMessage(outcome.Errors))

	case RenderTimedOut:
		log.WithFields(fields).Error("🎞️ [RENDER] Render timeout")
		return o.fail(ctx, p, MsgRenderTimeout)
	}
	return common.ValidationError("Unknown render outcome: " + string(outcome.Kind))
}

// launchPostRender chạy post-render workflow nền, không chặn trạng thái done của project
func (o *Orchestrator) launchPostRender(ctx context.Context, projectID, videoID primitive.ObjectID, videoURL string) {
	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.GetAppLogger().WithField("panic", r).Error("📣 [POST_RENDER] Panic")
			}
		}()
		if err := o.RunPostRender(bg, projectID, videoID, videoURL); err != nil {
			logger.GetAppLogger().WithField("projectId", projectID.Hex()).WithError(err).Warn("📣 [POST_RENDER] Kết thúc với lỗi")
		}
	}()
}
