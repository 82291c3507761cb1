package worker

import (
	"context"
	"time"

	"shorts_farm/internal/logger"
	"shorts_farm/internal/pipeline"
	"shorts_farm/internal/scheduler"
)

const tagDaily = "🗓️ [DAILY_SCHEDULER]"

// SchedulerRunner một lượt scheduler (scheduler.Scheduler)
type SchedulerRunner interface {
	RunOnce(ctx context.Context) ([]scheduler.AccountResult, error)
}

// DailySchedulerWorker chạy scheduler mỗi ngày vào giờ cố định (UTC)
type DailySchedulerWorker struct {
	runner  SchedulerRunner
	dailyAt string // "HH:MM"
	now     func() time.Time
}

// NewDailySchedulerWorker tạo worker; dailyAt sai định dạng thì trả lỗi ngay khi khởi động
func NewDailySchedulerWorker(runner SchedulerRunner, dailyAt string) (*DailySchedulerWorker, error) {
	if _, err := pipeline.NextDailyOccurrence(dailyAt, time.Now()); err != nil {
		return nil, err
	}
	return &DailySchedulerWorker{runner: runner, dailyAt: dailyAt, now: time.Now}, nil
}

// NextRun thời điểm chạy kế tiếp tính từ now
func (w *DailySchedulerWorker) NextRun() time.Time {
	next, err := pipeline.NextDailyOccurrence(w.dailyAt, w.now())
	if err != nil {
		// dailyAt đã được kiểm tra trong constructor
		return w.now().Add(24 * time.Hour)
	}
	return next
}

// Start chờ tới giờ chạy kế tiếp, chạy một lượt rồi lặp lại
func (w *DailySchedulerWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()
	log.WithFields(map[string]interface{}{
		"dailyAt": w.dailyAt,
	}).Info(tagDaily + " Starting Daily Scheduler Worker...")

	for {
		next := w.NextRun()
		timer := time.NewTimer(time.Until(next))
		log.WithField("nextRun", next.UTC().Format(time.RFC3339)).Debug(tagDaily + " Chờ lượt kế tiếp")

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info(tagDaily + " Daily Scheduler Worker stopped")
			return
		case <-timer.C:
			w.Tick(ctx)
		}
	}
}

// Tick chạy một lượt scheduler
func (w *DailySchedulerWorker) Tick(ctx context.Context) {
	safeTick(ctx, tagDaily, func(ctx context.Context) {
		log := logger.GetAppLogger()
		started := w.now()
		results, err := w.runner.RunOnce(ctx)
		if err != nil {
			log.WithError(err).Error(tagDaily + " Lượt scheduler thất bại")
			return
		}
		created := 0
		for _, r := range results {
			if r.ProjectID != nil {
				created++
			}
		}
		log.WithFields(map[string]interface{}{
			"accounts": len(results),
			"created":  created,
			"took":     w.now().Sub(started).String(),
		}).Info(tagDaily + " Đã chạy scheduler")
	})
}
