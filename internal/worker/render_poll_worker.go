package worker

import (
	"context"
	"errors"
	"time"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/pipeline"
)

const tagRenderPoll = "🎞️ [RENDER_POLL]"

// RenderingLister project đang chờ kết quả render
type RenderingLister interface {
	ListRendering(ctx context.Context) ([]models.Project, error)
}

// OutcomeReporter nơi hội tụ kết quả render (pipeline.Orchestrator)
type OutcomeReporter interface {
	ReportRenderOutcome(ctx context.Context, jobID string, outcome pipeline.RenderOutcome) error
}

// RenderPollWorker đọc tiến độ các job render đang chạy, bù cho webhook bị mất
type RenderPollWorker struct {
	projects RenderingLister
	progress pipeline.RenderProgressReader
	reporter OutcomeReporter
	interval time.Duration
}

// NewRenderPollWorker tạo worker; interval dưới 5 giây dùng mặc định 30 giây
func NewRenderPollWorker(projects RenderingLister, progress pipeline.RenderProgressReader, reporter OutcomeReporter, interval time.Duration) *RenderPollWorker {
	if interval < 5*time.Second {
		interval = 30 * time.Second
	}
	return &RenderPollWorker{
		projects: projects,
		progress: progress,
		reporter: reporter,
		interval: interval,
	}
}

// Start chạy Tick mỗi interval
func (w *RenderPollWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.WithFields(map[string]interface{}{
		"interval": w.interval.String(),
	}).Info(tagRenderPoll + " Starting Render Poll Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info(tagRenderPoll + " Render Poll Worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick kiểm tra mọi project đang rendering, trả về số job đã có kết quả
func (w *RenderPollWorker) Tick(ctx context.Context) int {
	reported := 0
	safeTick(ctx, tagRenderPoll, func(ctx context.Context) {
		log := logger.GetAppLogger()
		list, err := w.projects.ListRendering(ctx)
		if err != nil {
			log.WithError(err).Error(tagRenderPoll + " Lỗi lấy danh sách project đang render")
			return
		}
		for _, p := range list {
			if p.RenderID == "" {
				continue
			}
			fields := map[string]interface{}{
				"projectId": p.ID.Hex(),
				"renderId":  p.RenderID,
			}
			outcome, err := w.progress.Progress(ctx, p.RenderID, p.BucketName)
			if err != nil {
				log.WithError(err).WithFields(fields).Warn(tagRenderPoll + " Không đọc được tiến độ, thử lại lần sau")
				continue
			}
			if outcome == nil {
				continue
			}
			err = w.reporter.ReportRenderOutcome(ctx, p.RenderID, *outcome)
			if err != nil && !errors.Is(err, common.ErrUnknownRenderJob) {
				log.WithError(err).WithFields(fields).Warn(tagRenderPoll + " Ghi kết quả render thất bại")
				continue
			}
			reported++
		}
		if reported > 0 {
			log.WithField("reported", reported).Info(tagRenderPoll + " Đã cập nhật kết quả render")
		}
	})
	return reported
}
