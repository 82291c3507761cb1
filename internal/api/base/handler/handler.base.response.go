package basehdl

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/common"
	"shorts_farm/internal/global"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/utility"
)

// JSONResponse trả JSON với Content-Type có charset=utf-8
func JSONResponse(c fiber.Ctx, statusCode int, data interface{}) error {
	c.Set("Content-Type", "application/json; charset=utf-8")
	return c.Status(statusCode).JSON(data)
}

// SafeHandler bọc handler với recover, panic được trả về như lỗi 500
func SafeHandler(c fiber.Ctx, handler func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithRequest(c).WithField("stack", string(debug.Stack())).Error("💥 Handler panic")
			err = HandleResponse(c, nil, common.NewError(
				common.ErrCodeInternalServer,
				fmt.Sprintf("Lỗi hệ thống không mong muốn: %v", r),
				common.StatusInternalServerError,
				nil,
			))
		}
	}()
	return handler()
}

// HandleResponse chuẩn hóa response {code, message, data, status}
func HandleResponse(c fiber.Ctx, data interface{}, err error) error {
	return HandleResponseStatus(c, common.StatusOK, data, err)
}

// HandleResponseStatus như HandleResponse với status code tùy chọn khi thành công
func HandleResponseStatus(c fiber.Ctx, status int, data interface{}, err error) error {
	if err != nil {
		var customErr *common.Error
		if errors.As(err, &customErr) {
			body := fiber.Map{
				"code":    customErr.Code.Code,
				"message": customErr.Message,
				"status":  "error",
			}
			// Details là lỗi gốc thì chỉ ghi log, không trả ra client
			if cause, ok := customErr.Details.(error); ok {
				logger.WithRequest(c).WithError(cause).Warn(customErr.Message)
			} else if customErr.Details != nil {
				body["details"] = customErr.Details
			}
			return JSONResponse(c, customErr.StatusCode, body)
		}
		logger.WithRequest(c).WithError(err).Error("Lỗi không phân loại")
		return JSONResponse(c, common.StatusInternalServerError, fiber.Map{
			"code":    common.ErrCodeInternalServer.Code,
			"message": err.Error(),
			"status":  "error",
		})
	}

	message := common.MsgSuccess
	switch status {
	case common.StatusCreated:
		message = common.MsgCreated
	case common.StatusAccepted:
		message = common.MsgAccepted
	}
	return JSONResponse(c, status, fiber.Map{
		"code":    status,
		"message": message,
		"data":    data,
		"status":  "success",
	})
}

// ParseAndValidate parse JSON body vào input rồi validate theo tag
func ParseAndValidate(c fiber.Ctx, input interface{}) error {
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), input); err != nil {
			return common.NewError(
				common.ErrCodeValidationFormat,
				fmt.Sprintf("Dữ liệu gửi lên không đúng định dạng JSON. Chi tiết: %v", err),
				common.StatusBadRequest,
				nil,
			)
		}
	}
	if global.Validate == nil {
		global.InitValidator()
	}
	if err := global.Validate.Struct(input); err != nil {
		return common.NewError(common.ErrCodeValidationInput, common.MsgValidationError, common.StatusBadRequest, err.Error())
	}
	return nil
}

// ParamObjectID đọc ObjectID từ route param
func ParamObjectID(c fiber.Ctx, name string) (primitive.ObjectID, error) {
	return utility.ParseObjectID(c.Params(name))
}

// CurrentUserID user id do middleware xác thực gắn vào context
func CurrentUserID(c fiber.Ctx) (primitive.ObjectID, error) {
	id, _ := c.Locals("user_id").(string)
	if id == "" {
		return primitive.NilObjectID, common.ErrTokenMissing
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.ErrTokenInvalid
	}
	return oid, nil
}
