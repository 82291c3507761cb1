// Package worker các background worker: lịch chạy scheduler hằng ngày, poll tiến độ render, đăng bài hẹn giờ.
//
// Mỗi worker có Start(ctx) chạy vòng lặp tới khi ctx bị hủy và Tick(ctx) chạy đúng một lượt.
// Panic trong một lượt được recover, lượt sau vẫn chạy.
package worker

import (
	"context"

	"shorts_farm/internal/logger"
)

// safeTick chạy fn, panic được ghi log thay vì làm chết goroutine của worker
func safeTick(ctx context.Context, tag string, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.GetAppLogger().WithFields(map[string]interface{}{
				"panic": r,
			}).Error(tag + " Panic khi xử lý, sẽ tiếp tục ở lần chạy tiếp theo")
		}
	}()
	fn(ctx)
}
