// Package router đăng ký các route thuộc domain studio.
package router

import (
	"github.com/gofiber/fiber/v3"

	studiohdl "shorts_farm/internal/api/studio/handler"
	apirouter "shorts_farm/internal/api/router"
)

// Handlers các handler của domain studio
type Handlers struct {
	Projects *studiohdl.ProjectHandler
	Casts    *studiohdl.CastHandler
	Webhook  *studiohdl.RenderWebhookHandler
	Media    *studiohdl.MediaHandler
}

// Register trả về hàm đăng ký route studio lên v1
func Register(h Handlers) apirouter.RegisterFunc {
	return func(v1 fiber.Router, r *apirouter.Router) error {
		projects := apirouter.Group(v1, "/projects", r.Auth()...)
		projects.Post("", h.Projects.HandleCreateProject)
		projects.Get("", h.Projects.HandleListProjects)
		projects.Get("/:id", h.Projects.HandleGetProject)
		projects.Post("/:id/rerun", h.Projects.HandleRerun)
		projects.Post("/:id/rerun-from-scratch", h.Projects.HandleRerunFromScratch)
		projects.Post("/:id/rerender", h.Projects.HandleRerender)
		projects.Post("/:id/cancel", h.Projects.HandleCancel)
		projects.Get("/:id/timeline", h.Projects.HandleTimeline)
		projects.Get("/:id/captions", h.Projects.HandleCaptions)
		projects.Get("/:id/posts", h.Projects.HandleListPosts)
		apirouter.RegisterRouteWithMiddleware(v1, "/credits", "GET", "", r.Auth(), h.Projects.HandleCredits)

		casts := apirouter.Group(v1, "/casts", r.Auth()...)
		casts.Get("", h.Casts.HandleListCasts)
		casts.Post("", h.Casts.HandleCreateCast)
		casts.Get("/:id", h.Casts.HandleGetCast)
		casts.Post("/:id/characters", h.Casts.HandleCreateCharacter)

		assets := apirouter.Group(v1, "/assets", r.Auth()...)
		assets.Post("", h.Casts.HandleCreateAsset)
		assets.Get("/backgrounds", h.Casts.HandleListBackgrounds)

		// Dịch vụ ngoài gọi vào, xác thực bằng chữ ký hoặc không cần
		v1.Post("/render/webhook", h.Webhook.HandleRenderWebhook)
		v1.Get("/media/:id", h.Media.HandleDownload)
		return nil
	}
}
