package studiodto

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
)

// CastCreateInput input tạo cast
type CastCreateInput struct {
	Name     string `json:"name" validate:"required,max=100,no_xss"`
	Dynamics string `json:"dynamics,omitempty" validate:"omitempty,max=2000,no_xss"`
}

// ToModel chuyển sang model
func (in *CastCreateInput) ToModel() models.Cast {
	return models.Cast{
		Name:     strings.TrimSpace(in.Name),
		Dynamics: strings.TrimSpace(in.Dynamics),
	}
}

// CharacterCreateInput input thêm nhân vật vào cast
type CharacterCreateInput struct {
	Name        string `json:"name" validate:"required,max=100,no_xss"`
	Description string `json:"description" validate:"omitempty,max=2000,no_xss"`
	VoiceID     string `json:"voiceId,omitempty" validate:"omitempty,max=100"`
}

// ToModel chuyển sang model thuộc castID
func (in *CharacterCreateInput) ToModel(castID primitive.ObjectID) models.Character {
	return models.Character{
		CastID:      castID,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		VoiceID:     strings.TrimSpace(in.VoiceID),
	}
}

// AssetCreateInput input thêm asset vào thư viện.
// character-asset cần characterId, name là tên biểu cảm.
type AssetCreateInput struct {
	Type        string `json:"type" validate:"required,oneof=character-asset background-asset sound-effect"`
	Name        string `json:"name" validate:"required,max=100,no_xss"`
	Description string `json:"description,omitempty" validate:"omitempty,max=1000,no_xss"`
	URL         string `json:"url" validate:"required,url"`
	CharacterID string `json:"characterId,omitempty" validate:"omitempty,len=24,hexadecimal"`
}

// ToModel chuyển sang model; castID lấy từ nhân vật đã kiểm tra (nil với asset không gắn nhân vật)
func (in *AssetCreateInput) ToModel(character *models.Character) (models.Asset, error) {
	asset := models.Asset{
		Type:        in.Type,
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		URL:         strings.TrimSpace(in.URL),
	}
	if in.Type == models.AssetTypeCharacter && character == nil {
		return asset, common.ValidationError("characterId is required for character assets")
	}
	if character != nil {
		charID, castID := character.ID, character.CastID
		asset.CharacterID = &charID
		asset.CastID = &castID
	}
	return asset, nil
}
