package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cast nhóm nhân vật dùng chung cho một video
// Collection: casts
type Cast struct {
	ID       primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Dynamics string             `json:"dynamics,omitempty" bson:"dynamics,omitempty"` // Mô tả quan hệ giữa các nhân vật

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// Character nhân vật thuộc một cast
// Collection: characters
type Character struct {
	ID          primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	CastID      primitive.ObjectID `json:"castId" bson:"castId" index:"single:1"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description" bson:"description"`
	VoiceID     string             `json:"voiceId,omitempty" bson:"voiceId,omitempty"` // ID giọng của TTS

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
