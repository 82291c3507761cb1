package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InitialVideoCredits số lượt tạo video của user mới
const InitialVideoCredits = 10

// UserCredit số lượt tạo video còn lại của user
// Collection: user_credits
type UserCredit struct {
	ID         primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID     primitive.ObjectID `json:"userId" bson:"userId" index:"unique"`
	Email      string             `json:"email,omitempty" bson:"email,omitempty"`
	TokensLeft int                `json:"tokensLeft" bson:"tokensLeft"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
