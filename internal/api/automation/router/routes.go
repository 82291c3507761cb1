// Package router đăng ký các route thuộc domain automation.
package router

import (
	"github.com/gofiber/fiber/v3"

	autohdl "shorts_farm/internal/api/automation/handler"
	apirouter "shorts_farm/internal/api/router"
)

// Register trả về hàm đăng ký route automation lên v1
func Register(h *autohdl.AccountHandler) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		accounts := apirouter.Group(v1, "/accounts", r.Auth()...)
		accounts.Get("", h.HandleListAccounts)
		accounts.Post("", h.HandleCreateAccount)
		accounts.Get("/:id", h.HandleGetAccount)
		accounts.Patch("/:id", h.HandleUpdateAccount)
		accounts.Post("/:id/topics", h.HandleAddTopic)
		accounts.Delete("/:id/topics/:index", h.HandleRemoveTopic)
		accounts.Delete("/:id/topics", h.HandleClearTopics)

		apirouter.RegisterRouteWithMiddleware(v1, "/scheduler", "POST", "/run", r.Auth(), h.HandleRunScheduler)
		return nil
	}
}
