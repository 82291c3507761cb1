package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Nền tảng đăng video được hỗ trợ
const (
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
)

// CastWeight trọng số chọn cast khi scheduler tạo project
type CastWeight struct {
	CastID primitive.ObjectID `json:"castId" bson:"castId"`
	Weight float64            `json:"weight" bson:"weight"`
}

// PlatformCredential thông tin đăng bài của account trên một nền tảng
type PlatformCredential struct {
	Platform     string `json:"platform" bson:"platform"`
	Handle       string `json:"handle" bson:"handle"`
	UserID       string `json:"userId,omitempty" bson:"userId,omitempty"`             // Instagram business user id
	AccessToken  string `json:"-" bson:"accessToken,omitempty"`                       // Instagram long-lived token
	RefreshToken string `json:"-" bson:"refreshToken,omitempty"`                      // YouTube OAuth refresh token
	ExpiresAt    int64  `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// HasCredentials có đủ thông tin để đăng bài không
func (p PlatformCredential) HasCredentials() bool {
	switch p.Platform {
	case PlatformInstagram:
		return p.UserID != "" && p.AccessToken != ""
	case PlatformYouTube:
		return p.RefreshToken != ""
	}
	return false
}

// Account automation account: hàng đợi topic, trọng số cast, lịch đăng
// Collection: automation_accounts
type Account struct {
	ID            primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"userId" bson:"userId" index:"single:1"`
	OwnerEmail    string             `json:"ownerEmail,omitempty" bson:"ownerEmail,omitempty"`
	DisplayName   string             `json:"displayName" bson:"displayName"`
	Bio           string             `json:"bio,omitempty" bson:"bio,omitempty"`
	CreativeBrief string             `json:"creativeBrief,omitempty" bson:"creativeBrief,omitempty"`

	// ===== AUTOMATION =====
	Enabled      bool                 `json:"enabled" bson:"enabled" index:"single:1"`
	TopicQueue   []string             `json:"topicQueue" bson:"topicQueue"`
	CastWeights  []CastWeight         `json:"castWeights,omitempty" bson:"castWeights,omitempty"`
	PostSchedule string               `json:"postSchedule,omitempty" bson:"postSchedule,omitempty"` // "HH:MM" theo UTC
	Platforms    []PlatformCredential `json:"platforms,omitempty" bson:"platforms,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// PublishablePlatforms các nền tảng có đủ credential
func (a *Account) PublishablePlatforms() []PlatformCredential {
	var out []PlatformCredential
	for _, p := range a.Platforms {
		if p.HasCredentials() {
			out = append(out, p)
		}
	}
	return out
}
