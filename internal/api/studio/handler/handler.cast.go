package studiohdl

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "shorts_farm/internal/api/base/handler"
	studiodto "shorts_farm/internal/api/studio/dto"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
)

// CastLibrary thư viện cast, nhân vật và asset
type CastLibrary interface {
	ListCasts(ctx context.Context) ([]models.Cast, error)
	GetCast(ctx context.Context, id primitive.ObjectID) (*models.Cast, error)
	CreateCast(ctx context.Context, cast models.Cast) (*models.Cast, error)
	ListCharacters(ctx context.Context, castID primitive.ObjectID) ([]models.Character, error)
	GetCharacter(ctx context.Context, id primitive.ObjectID) (*models.Character, error)
	CreateCharacter(ctx context.Context, character models.Character) (*models.Character, error)
	CreateAsset(ctx context.Context, asset models.Asset) (*models.Asset, error)
	ListBackgrounds(ctx context.Context) ([]models.Asset, error)
}

// CastHandler quản lý cast và asset dùng khi plan/render
type CastHandler struct {
	library CastLibrary
}

// NewCastHandler tạo handler
func NewCastHandler(library CastLibrary) *CastHandler {
	return &CastHandler{library: library}
}

// castDetail cast kèm danh sách nhân vật
type castDetail struct {
	*models.Cast
	Characters []models.Character `json:"characters"`
}

// HandleListCasts danh sách cast
func (h *CastHandler) HandleListCasts(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		casts, err := h.library.ListCasts(c.Context())
		return basehdl.HandleResponse(c, casts, err)
	})
}

// HandleGetCast chi tiết cast
func (h *CastHandler) HandleGetCast(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		id, err := basehdl.ParamObjectID(c, "id")
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		cast, err := h.library.GetCast(c.Context(), id)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		characters, err := h.library.ListCharacters(c.Context(), id)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if characters == nil {
			characters = []models.Character{}
		}
		return basehdl.HandleResponse(c, castDetail{Cast: cast, Characters: characters}, nil)
	})
}

// HandleCreateCast tạo cast
func (h *CastHandler) HandleCreateCast(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		var input studiodto.CastCreateInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		cast, err := h.library.CreateCast(c.Context(), input.ToModel())
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditCastCreate, "cast", cast.ID.Hex(), map[string]interface{}{"name": cast.Name})
		return basehdl.HandleResponseStatus(c, common.StatusCreated, cast, nil)
	})
}

// HandleCreateCharacter thêm nhân vật vào cast :id
func (h *CastHandler) HandleCreateCharacter(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		castID, err := basehdl.ParamObjectID(c, "id")
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var input studiodto.CharacterCreateInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if _, err := h.library.GetCast(c.Context(), castID); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		character, err := h.library.CreateCharacter(c.Context(), input.ToModel(castID))
		return basehdl.HandleResponseStatus(c, common.StatusCreated, character, err)
	})
}

// HandleCreateAsset thêm ảnh biểu cảm nhân vật hoặc video nền
func (h *CastHandler) HandleCreateAsset(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		var input studiodto.AssetCreateInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var character *models.Character
		if input.CharacterID != "" {
			id, err := primitive.ObjectIDFromHex(input.CharacterID)
			if err != nil {
				return basehdl.HandleResponse(c, nil, common.ValidationError("Invalid characterId"))
			}
			if character, err = h.library.GetCharacter(c.Context(), id); err != nil {
				return basehdl.HandleResponse(c, nil, err)
			}
		}
		asset, err := input.ToModel(character)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		created, err := h.library.CreateAsset(c.Context(), asset)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditAssetCreate, "asset", created.ID.Hex(), map[string]interface{}{
			"type": created.Type,
			"name": created.Name,
		})
		return basehdl.HandleResponseStatus(c, common.StatusCreated, created, nil)
	})
}

// HandleListBackgrounds video nền đang có trong thư viện
func (h *CastHandler) HandleListBackgrounds(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		assets, err := h.library.ListBackgrounds(c.Context())
		if assets == nil && err == nil {
			assets = []models.Asset{}
		}
		return basehdl.HandleResponse(c, assets, err)
	})
}
