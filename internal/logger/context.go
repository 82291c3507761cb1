package logger

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// ContextWithRequestID gắn request id vào context để log ở tầng service
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// WithContext entry của app logger kèm request_id nếu context có
func WithContext(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(GetAppLogger())
	if ctx == nil {
		return entry
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		entry = entry.WithField("request_id", id)
	}
	return entry
}

// WithRequest entry kèm thông tin request Fiber
func WithRequest(c fiber.Ctx) *logrus.Entry {
	fields := logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
		"ip":     c.IP(),
	}
	if id := RequestID(c); id != "" {
		fields["request_id"] = id
	}
	if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
		fields["user_id"] = userID
	}
	return GetAppLogger().WithFields(fields)
}

// RequestID lấy id từ middleware requestid, fallback header X-Request-ID
func RequestID(c fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}

// WithModule entry gắn field module, dùng cho FilterHook
func WithModule(module string) *logrus.Entry {
	return GetAppLogger().WithField("module", module)
}
