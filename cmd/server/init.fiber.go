package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/google/uuid"

	"shorts_farm/config"
	autohdl "shorts_farm/internal/api/automation/handler"
	autorouter "shorts_farm/internal/api/automation/router"
	basehdl "shorts_farm/internal/api/base/handler"
	"shorts_farm/internal/api/middleware"
	apirouter "shorts_farm/internal/api/router"
	studiohdl "shorts_farm/internal/api/studio/handler"
	studiorouter "shorts_farm/internal/api/studio/router"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
)

// healthPaths các path không bị rate limit và recover bỏ qua
var healthPaths = map[string]bool{
	"/health":               true,
	"/api/v1/system/health": true,
}

// InitFiberApp khởi tạo ứng dụng Fiber với các middleware cần thiết
func InitFiberApp(a *serverApp) *fiber.App {
	cfg := a.cfg
	app := fiber.New(fiber.Config{
		// =========================================
		// 1. CẤU HÌNH CƠ BẢN
		// =========================================
		AppName:       "Shorts Farm API",
		ServerHeader:  "Shorts Farm API",
		StrictRouting: true,
		CaseSensitive: true,
		UnescapePath:  true,

		// =========================================
		// 2. CẤU HÌNH PERFORMANCE
		// =========================================
		BodyLimit:       10 * 1024 * 1024,
		Concurrency:     256 * 1024,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,

		// =========================================
		// 3. CẤU HÌNH TIMEOUT
		// =========================================
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,

		// =========================================
		// 4. CẤU HÌNH ERROR HANDLING
		// =========================================
		ErrorHandler: errorHandler(cfg),
	})

	// =========================================
	// MIDDLEWARE STACK
	// =========================================

	// 1. Request ID để trace log theo request
	app.Use(requestid.New(requestid.Config{
		Header:    "X-Request-ID",
		Generator: uuid.NewString,
	}))

	// 2. CORS đặt trước các middleware khác để xử lý preflight
	app.Use(cors.New(cors.Config{
		AllowOrigins: splitOrigins(cfg.CORS_Origins),
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"X-Requested-With",
		},
		AllowCredentials: cfg.CORS_AllowCredentials,
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "X-Request-ID"},
		MaxAge:           24 * 60 * 60,
	}))

	// 3. Security headers
	app.Use(func(c fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		return c.Next()
	})

	// 4. Rate limit theo IP
	log := logger.GetAppLogger()
	if cfg.RateLimit_Enabled && cfg.RateLimit_Max > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit_Max,
			Expiration: time.Duration(cfg.RateLimit_Window) * time.Second,
			KeyGenerator: func(c fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"code":    common.ErrCodeBusinessOperation.Code,
					"message": "Quá nhiều yêu cầu, vui lòng thử lại sau",
					"status":  "error",
				})
			},
			Next: func(c fiber.Ctx) bool {
				// Webhook render cũng bỏ qua vì dịch vụ render gửi dồn khi nhiều job xong cùng lúc
				return healthPaths[c.Path()] ||
					c.Path() == "/api/v1/render/webhook" ||
					c.Method() == fiber.MethodOptions
			},
		}))
		log.Infof("Rate limiting enabled: %d requests per %d seconds", cfg.RateLimit_Max, cfg.RateLimit_Window)
	} else {
		log.Info("Rate limiting disabled")
	}

	// 5. Recover
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			logger.WithRequest(c).WithFields(map[string]interface{}{
				"panic":  e,
				"path":   c.Path(),
				"method": c.Method(),
			}).Error("Panic recovered")
		},
		Next: func(c fiber.Ctx) bool {
			return healthPaths[c.Path()]
		},
	}))

	if err := setupRoutes(app, a); err != nil {
		log.Fatalf("Failed to register routes: %v", err)
	}
	return app
}

// setupRoutes dựng handler từ service và đăng ký route của từng domain
func setupRoutes(app *fiber.App, a *serverApp) error {
	svc := a.svc
	system := basehdl.NewSystemHandler(a.healthChecks())
	app.Get("/health", system.HandleHealth)

	studio := studiorouter.Handlers{
		Projects: studiohdl.NewProjectHandler(svc.projects, svc.scripts, svc.credits, svc.posts, a.orchestrator),
		Casts:    studiohdl.NewCastHandler(svc.casts),
		Webhook:  studiohdl.NewRenderWebhookHandler(a.orchestrator, a.cfg.Render_WebhookSecret),
		Media:    studiohdl.NewMediaHandler(svc.media),
	}
	accounts := autohdl.NewAccountHandler(svc.accounts, a.scheduler)

	return apirouter.SetupRoutes(app, middleware.AuthMiddleware(a.cfg.JwtSecret),
		func(v1 fiber.Router, _ *apirouter.Router) error {
			v1.Get("/system/health", system.HandleHealth)
			return nil
		},
		studiorouter.Register(studio),
		autorouter.Register(accounts),
	)
}

// healthChecks ping MongoDB và Redis (nếu có)
func (a *serverApp) healthChecks() map[string]basehdl.Pinger {
	checks := map[string]basehdl.Pinger{
		"mongodb": func(ctx context.Context) error {
			return a.mongo.Ping(ctx, nil)
		},
	}
	if a.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}
	}
	return checks
}

func splitOrigins(raw string) []string {
	if raw == "*" {
		return []string{"*"}
	}
	origins := strings.Split(raw, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}

// errorHandler trả lỗi của Fiber (route không tồn tại, body quá lớn...) theo cùng format response
func errorHandler(cfg *config.Configuration) fiber.ErrorHandler {
	return func(c fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"
		errorCode := common.ErrCodeInternalServer.Code

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			message = e.Message
			switch code {
			case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
				errorCode = common.ErrCodeValidationInput.Code
			case fiber.StatusUnauthorized:
				errorCode = common.ErrCodeAuthToken.Code
			case fiber.StatusForbidden:
				errorCode = common.ErrCodeAuth.Code
			case fiber.StatusNotFound, fiber.StatusConflict:
				errorCode = common.ErrCodeDatabaseQuery.Code
			}
		}

		// HTTPS gửi tới server HTTP: handshake TLS bắt đầu bằng \x16\x03\x01
		errMsg := err.Error()
		if strings.Contains(errMsg, "unsupported http request method") &&
			(strings.Contains(errMsg, "\x16\x03\x01") || strings.Contains(errMsg, "error when reading request headers")) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    common.ErrCodeValidationInput.Code,
				"message": "Server chỉ hỗ trợ HTTP. Vui lòng sử dụng http:// thay vì https://",
				"status":  "error",
				"details": fiber.Map{
					"protocol":   "HTTP only",
					"suggestion": fmt.Sprintf("Sử dụng URL: %s", cfg.PublicBaseURL),
				},
			})
		}

		logger.WithRequest(c).WithFields(map[string]interface{}{
			"code":      code,
			"errorCode": errorCode,
			"message":   message,
		}).Error("Request error")
		if code >= fiber.StatusInternalServerError {
			logger.GetErrorLogger().WithFields(map[string]interface{}{
				"method": c.Method(),
				"path":   c.Path(),
			}).WithError(err).Error("Request error")
		}

		return c.Status(code).JSON(fiber.Map{
			"code":    errorCode,
			"message": message,
			"status":  "error",
		})
	}
}
