package basehdl

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"shorts_farm/internal/common"
)

// Pinger kiểm tra kết nối một dependency (MongoDB, Redis)
type Pinger func(ctx context.Context) error

// SystemHandler health check
type SystemHandler struct {
	checks map[string]Pinger
}

// NewSystemHandler tạo handler với các dependency cần kiểm tra
func NewSystemHandler(checks map[string]Pinger) *SystemHandler {
	return &SystemHandler{checks: checks}
}

// HandleHealth trả về trạng thái API và các dependency
func (h *SystemHandler) HandleHealth(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	services := fiber.Map{"api": "ok"}
	healthy := true
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			services[name] = "error"
			healthy = false
			continue
		}
		services[name] = "ok"
	}
	data := fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	}
	if !healthy {
		data["status"] = "degraded"
		return JSONResponse(c, common.StatusServiceUnavailable, fiber.Map{
			"code":    common.StatusServiceUnavailable,
			"message": "Hệ thống đang gặp sự cố",
			"data":    data,
			"status":  "error",
		})
	}
	return HandleResponse(c, data, nil)
}
