// Package autohdl chứa HTTP handler cho domain automation: account, hàng đợi topic, chạy scheduler.
package autohdl

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	autodto "shorts_farm/internal/api/automation/dto"
	automodels "shorts_farm/internal/api/automation/models"
	basehdl "shorts_farm/internal/api/base/handler"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/scheduler"
)

// AccountStore thao tác account mà handler cần
type AccountStore interface {
	CreateAccount(ctx context.Context, a automodels.Account) (*automodels.Account, error)
	GetOwnedAccount(ctx context.Context, id, userID primitive.ObjectID) (*automodels.Account, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]automodels.Account, error)
	AppendTopic(ctx context.Context, id primitive.ObjectID, topic string) error
	RemoveTopicAt(ctx context.Context, id primitive.ObjectID, index int) (*automodels.Account, error)
	ClearTopics(ctx context.Context, id primitive.ObjectID) error
	UpdateSettings(ctx context.Context, id primitive.ObjectID, set bson.M) (*automodels.Account, error)
}

// SchedulerRunner chạy một lượt scheduler
type SchedulerRunner interface {
	RunOnce(ctx context.Context) ([]scheduler.AccountResult, error)
}

// AccountHandler xử lý request liên quan đến automation account
type AccountHandler struct {
	accounts  AccountStore
	scheduler SchedulerRunner
}

// NewAccountHandler tạo handler
func NewAccountHandler(accounts AccountStore, runner SchedulerRunner) *AccountHandler {
	return &AccountHandler{accounts: accounts, scheduler: runner}
}

func (h *AccountHandler) ownedAccount(c fiber.Ctx) (*automodels.Account, error) {
	userID, err := basehdl.CurrentUserID(c)
	if err != nil {
		return nil, err
	}
	id, err := basehdl.ParamObjectID(c, "id")
	if err != nil {
		return nil, err
	}
	return h.accounts.GetOwnedAccount(c.Context(), id, userID)
}

// HandleListAccounts account của user hiện tại
func (h *AccountHandler) HandleListAccounts(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		userID, err := basehdl.CurrentUserID(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		accounts, err := h.accounts.ListByUser(c.Context(), userID)
		return basehdl.HandleResponse(c, accounts, err)
	})
}

// HandleGetAccount chi tiết account
func (h *AccountHandler) HandleGetAccount(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		a, err := h.ownedAccount(c)
		return basehdl.HandleResponse(c, a, err)
	})
}

// HandleCreateAccount tạo account
func (h *AccountHandler) HandleCreateAccount(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		userID, err := basehdl.CurrentUserID(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var input autodto.AccountCreateInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		model, err := input.ToModel(userID)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		a, err := h.accounts.CreateAccount(c.Context(), model)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditAccountCreate, "automation_account", a.ID.Hex(), map[string]interface{}{
			"displayName": a.DisplayName,
			"enabled":     a.Enabled,
		})
		return basehdl.HandleResponseStatus(c, common.StatusCreated, a, nil)
	})
}

// HandleUpdateAccount cập nhật cấu hình automation
func (h *AccountHandler) HandleUpdateAccount(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		a, err := h.ownedAccount(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var input autodto.AccountUpdateInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		set, err := input.ToSet()
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		updated, err := h.accounts.UpdateSettings(c.Context(), a.ID, set)
		return basehdl.HandleResponse(c, updated, err)
	})
}

// HandleAddTopic thêm topic vào cuối hàng đợi
func (h *AccountHandler) HandleAddTopic(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		a, err := h.ownedAccount(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var input autodto.TopicInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if err := h.accounts.AppendTopic(c.Context(), a.ID, input.Topic); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditTopicQueueChange, "automation_account", a.ID.Hex(), map[string]interface{}{
			"op":    "add",
			"topic": input.Topic,
		})
		updated, err := h.accounts.GetOwnedAccount(c.Context(), a.ID, a.UserID)
		return basehdl.HandleResponseStatus(c, common.StatusCreated, updated, err)
	})
}

// HandleRemoveTopic xóa topic tại :index
func (h *AccountHandler) HandleRemoveTopic(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		a, err := h.ownedAccount(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		index, err := strconv.Atoi(c.Params("index"))
		if err != nil {
			return basehdl.HandleResponse(c, nil, common.ValidationError("index must be an integer"))
		}
		updated, err := h.accounts.RemoveTopicAt(c.Context(), a.ID, index)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditTopicQueueChange, "automation_account", a.ID.Hex(), map[string]interface{}{
			"op":    "remove",
			"index": index,
		})
		return basehdl.HandleResponse(c, updated, nil)
	})
}

// HandleClearTopics xóa toàn bộ hàng đợi
func (h *AccountHandler) HandleClearTopics(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		a, err := h.ownedAccount(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if err := h.accounts.ClearTopics(c.Context(), a.ID); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditTopicQueueChange, "automation_account", a.ID.Hex(), map[string]interface{}{"op": "clear"})
		return basehdl.HandleResponse(c, nil, nil)
	})
}

// HandleRunScheduler chạy ngay một lượt scheduler cho mọi account đang bật
func (h *AccountHandler) HandleRunScheduler(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		ctx := logger.ContextWithRequestID(context.Background(), logger.RequestID(c))
		results, err := h.scheduler.RunOnce(ctx)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditSchedulerRun, "scheduler", "", map[string]interface{}{"accounts": len(results)})
		return basehdl.HandleResponse(c, results, nil)
	})
}
