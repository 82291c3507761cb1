package main

import (
	"context"
	"sync"

	"shorts_farm/internal/logger"
	"shorts_farm/internal/utility"
	"shorts_farm/internal/worker"
)

// backgroundWorker worker chạy đến khi ctx bị hủy
type backgroundWorker interface {
	Start(ctx context.Context)
}

// startWorkers chạy các worker nền, mỗi worker một goroutine có recover. Trả về WaitGroup để main chờ khi tắt.
func startWorkers(ctx context.Context, a *serverApp) *sync.WaitGroup {
	log := logger.GetAppLogger()
	workers := map[string]backgroundWorker{
		"🎞️ [RENDER_POLL]": worker.NewRenderPollWorker(a.svc.projects, a.render, a.orchestrator, a.cfg.RenderPollInterval),
		"📤 [PUBLISH]": worker.NewPublishWorker(a.svc.posts, a.svc.accounts, a.svc.projects, a.svc.videos,
			a.publishers, a.cfg.PublishPollInterval),
	}

	if a.cfg.SchedulerEnabled {
		daily, err := worker.NewDailySchedulerWorker(a.scheduler, a.cfg.SchedulerDailyAt)
		if err != nil {
			log.WithError(err).Error("⏰ [SCHEDULER] Giờ chạy không hợp lệ, bỏ qua scheduler hằng ngày")
		} else {
			workers["⏰ [SCHEDULER]"] = daily
		}
	} else {
		log.Info("⏰ [SCHEDULER] Scheduler hằng ngày đang tắt")
	}

	var wg sync.WaitGroup
	for tag, w := range workers {
		wg.Add(1)
		utility.GoProtect(func() {
			defer wg.Done()
			w.Start(ctx)
			log.Warn(tag + " Worker đã dừng")
		})
	}
	return &wg
}
