package studiohdl

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "shorts_farm/internal/api/base/handler"
)

// MediaReader đọc blob đã lưu
type MediaReader interface {
	Open(ctx context.Context, id primitive.ObjectID) ([]byte, string, error)
}

// MediaHandler phục vụ audio/ảnh đã lưu trong GridFS. Không cần đăng nhập vì TTS/render/Instagram đọc trực tiếp URL.
type MediaHandler struct {
	media MediaReader
}

// NewMediaHandler tạo handler
func NewMediaHandler(media MediaReader) *MediaHandler {
	return &MediaHandler{media: media}
}

// HandleDownload trả nội dung blob với content type đã lưu
func (h *MediaHandler) HandleDownload(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		id, err := basehdl.ParamObjectID(c, "id")
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		data, contentType, err := h.media.Open(c.Context(), id)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		c.Set("Content-Type", contentType)
		c.Set("Cache-Control", "public, max-age=31536000, immutable")
		return c.Status(fiber.StatusOK).Send(data)
	})
}
