package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssetType loại asset trong thư viện
const (
	AssetTypeCharacter  = "character-asset"
	AssetTypeBackground = "background-asset"
	AssetTypeSoundFX    = "sound-effect"
)

// Asset tài nguyên dùng khi render (ảnh nhân vật theo biểu cảm, video nền)
// Collection: assets
type Asset struct {
	ID          primitive.ObjectID  `json:"id,omitempty" bson:"_id,omitempty"`
	Type        string              `json:"type" bson:"type" index:"single:1"`
	Name        string              `json:"name" bson:"name"` // Với character-asset: tên biểu cảm (happy, default...)
	Description string              `json:"description" bson:"description"`
	URL         string              `json:"url" bson:"url"`
	CharacterID *primitive.ObjectID `json:"characterId,omitempty" bson:"characterId,omitempty" index:"single:1"`
	CastID      *primitive.ObjectID `json:"castId,omitempty" bson:"castId,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
