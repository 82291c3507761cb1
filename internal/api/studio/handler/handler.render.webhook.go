package studiohdl

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	basehdl "shorts_farm/internal/api/base/handler"
	studiodto "shorts_farm/internal/api/studio/dto"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
)

// SignatureHeader header chứa chữ ký HMAC của body webhook
const SignatureHeader = "X-Remotion-Signature"

// RenderWebhookHandler nhận callback khi job render kết thúc
type RenderWebhookHandler struct {
	runs   RunController
	secret string
}

// NewRenderWebhookHandler tạo handler; secret rỗng thì bỏ qua kiểm tra chữ ký
func NewRenderWebhookHandler(runs RunController, secret string) *RenderWebhookHandler {
	return &RenderWebhookHandler{runs: runs, secret: secret}
}

// SignBody chữ ký "sha512=<hex>" của body với secret
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return "sha512=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature so sánh chữ ký theo thời gian hằng
func VerifySignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, "sha512=") {
		return false
	}
	return hmac.Equal([]byte(SignBody(secret, body)), []byte(header))
}

// HandleRenderWebhook chuyển payload về ReportRenderOutcome. Job không rõ vẫn trả 200 để dịch vụ không gửi lại.
func (h *RenderWebhookHandler) HandleRenderWebhook(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		body := c.Body()
		if h.secret != "" && !VerifySignature(h.secret, body, c.Get(SignatureHeader)) {
			logger.WithRequest(c).Warn("🎞️ [RENDER] Chữ ký webhook không hợp lệ")
			return basehdl.HandleResponse(c, nil, common.NewError(common.ErrCodeAuth, "Signature validation failed", common.StatusUnauthorized, nil))
		}

		var payload studiodto.RenderWebhookPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return basehdl.HandleResponse(c, nil, common.ErrInvalidFormat)
		}
		if payload.RenderID == "" {
			return basehdl.HandleResponse(c, nil, common.ValidationError("renderId is required"))
		}

		log := logger.WithRequest(c).WithFields(map[string]interface{}{
			"renderId": payload.RenderID,
			"type":     payload.Type,
		})
		err := h.runs.ReportRenderOutcome(runContext(c), payload.RenderID, payload.Outcome())
		if errors.Is(err, common.ErrUnknownRenderJob) {
			log.Warn("🎞️ [RENDER] Webhook cho renderId không rõ, vẫn xác nhận đã nhận")
			return basehdl.HandleResponse(c, fiber.Map{"acknowledged": true}, nil)
		}
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		log.Info("🎞️ [RENDER] Đã xử lý webhook")
		return basehdl.HandleResponse(c, fiber.Map{"acknowledged": true}, nil)
	})
}
