// Package router khung đăng ký route chung cho các domain (prefix, middleware xác thực).
package router

import (
	"github.com/gofiber/fiber/v3"
)

// Fiber v3 bỏ qua middleware truyền trực tiếp kiểu router.Get(path, mw, handler).
// Route cần middleware phải đi qua RegisterRouteWithMiddleware (group + .Use()).

// RoutePrefix chứa các prefix cơ bản cho API
type RoutePrefix struct {
	Base string // /api
	V1   string // /api/v1
}

// NewRoutePrefix tạo RoutePrefix mặc định
func NewRoutePrefix() RoutePrefix {
	base := "/api"
	return RoutePrefix{
		Base: base,
		V1:   base + "/v1",
	}
}

// Router giữ app và middleware xác thực dùng chung
type Router struct {
	app  *fiber.App
	auth fiber.Handler
}

// NewRouter tạo Router. auth là middleware JWT áp cho các route cần đăng nhập.
func NewRouter(app *fiber.App, auth fiber.Handler) *Router {
	return &Router{
		app:  app,
		auth: auth,
	}
}

// Auth middleware xác thực; nil thì route không yêu cầu đăng nhập (dùng trong test)
func (r *Router) Auth() []fiber.Handler {
	if r.auth == nil {
		return nil
	}
	return []fiber.Handler{r.auth}
}

// RegisterRouteWithMiddleware đăng ký route với middleware qua .Use() trên group riêng
//
//	RegisterRouteWithMiddleware(v1, "/projects", "GET", "/:id", r.Auth(), h.HandleGetProject)
func RegisterRouteWithMiddleware(router fiber.Router, prefix string, method string, path string, middlewares []fiber.Handler, handler fiber.Handler) {
	routeGroup := router.Group(prefix)
	for _, mw := range middlewares {
		routeGroup.Use(mw)
	}

	switch method {
	case "GET":
		routeGroup.Get(path, handler)
	case "POST":
		routeGroup.Post(path, handler)
	case "PUT":
		routeGroup.Put(path, handler)
	case "PATCH":
		routeGroup.Patch(path, handler)
	case "DELETE":
		routeGroup.Delete(path, handler)
	}
}

// Group tạo group với middleware gắn một lần qua .Use(), dùng khi nhiều route chung prefix
func Group(router fiber.Router, prefix string, middlewares ...fiber.Handler) fiber.Router {
	g := router.Group(prefix)
	for _, mw := range middlewares {
		g.Use(mw)
	}
	return g
}

// RegisterFunc hàm đăng ký route của một domain (do domain/router export)
type RegisterFunc func(v1 fiber.Router, r *Router) error

// SetupRoutes thiết lập tất cả route. Caller truyền Register của từng domain để tránh import cycle.
func SetupRoutes(app *fiber.App, auth fiber.Handler, regs ...RegisterFunc) error {
	prefix := NewRoutePrefix()
	v1 := app.Group(prefix.V1)
	r := NewRouter(app, auth)
	for _, reg := range regs {
		if err := reg(v1, r); err != nil {
			return err
		}
	}
	return nil
}
