package utility

import (
	"fmt"
	"runtime/debug"

	"shorts_farm/internal/logger"
)

// GoProtect chạy f trong goroutine riêng, panic được recover và ghi log
func GoProtect(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.GetAppLogger().WithFields(map[string]interface{}{
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				}).Error("💥 Goroutine panic recovered")
			}
		}()
		f()
	}()
}
