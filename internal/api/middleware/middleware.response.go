package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"shorts_farm/internal/common"
)

// HandleErrorResponse trả lỗi theo envelope chung. Tách khỏi basehdl để tránh import cycle.
func HandleErrorResponse(c fiber.Ctx, err error) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	var customErr *common.Error
	if errors.As(err, &customErr) {
		return c.Status(customErr.StatusCode).JSON(fiber.Map{
			"code":    customErr.Code.Code,
			"message": customErr.Message,
			"status":  "error",
		})
	}
	return c.Status(common.StatusInternalServerError).JSON(fiber.Map{
		"code":    common.ErrCodeInternalServer.Code,
		"message": err.Error(),
		"status":  "error",
	})
}
