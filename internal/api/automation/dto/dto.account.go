// Package autodto chứa DTO cho domain automation (account, hàng đợi topic).
package autodto

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/common"
)

// CastWeightInput trọng số của một cast
type CastWeightInput struct {
	CastID string  `json:"castId" validate:"required,len=24,hexadecimal"`
	Weight float64 `json:"weight" validate:"gte=0"`
}

// PlatformInput credential đăng bài
type PlatformInput struct {
	Platform     string `json:"platform" validate:"required,oneof=instagram youtube"`
	Handle       string `json:"handle" validate:"max=100,no_xss"`
	UserID       string `json:"userId,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"`
}

// AccountCreateInput input tạo automation account
type AccountCreateInput struct {
	DisplayName   string            `json:"displayName" validate:"required,max=100,no_xss"`
	OwnerEmail    string            `json:"ownerEmail,omitempty" validate:"omitempty,email"`
	Bio           string            `json:"bio,omitempty" validate:"max=1000,no_xss"`
	CreativeBrief string            `json:"creativeBrief,omitempty" validate:"max=4000,no_xss"`
	Enabled       bool              `json:"enabled"`
	TopicQueue    []string          `json:"topicQueue,omitempty" validate:"omitempty,dive,max=500,no_xss"`
	CastWeights   []CastWeightInput `json:"castWeights,omitempty" validate:"omitempty,dive"`
	PostSchedule  string            `json:"postSchedule,omitempty" validate:"hhmm"`
	Platforms     []PlatformInput   `json:"platforms,omitempty" validate:"omitempty,dive"`
}

func castWeights(in []CastWeightInput) ([]automodels.CastWeight, error) {
	out := make([]automodels.CastWeight, 0, len(in))
	for _, w := range in {
		id, err := primitive.ObjectIDFromHex(w.CastID)
		if err != nil {
			return nil, common.ValidationError("Invalid castId: " + w.CastID)
		}
		out = append(out, automodels.CastWeight{CastID: id, Weight: w.Weight})
	}
	return out, nil
}

func platforms(in []PlatformInput) []automodels.PlatformCredential {
	out := make([]automodels.PlatformCredential, 0, len(in))
	for _, p := range in {
		out = append(out, automodels.PlatformCredential{
			Platform:     p.Platform,
			Handle:       strings.TrimSpace(p.Handle),
			UserID:       p.UserID,
			AccessToken:  p.AccessToken,
			RefreshToken: p.RefreshToken,
			ExpiresAt:    p.ExpiresAt,
		})
	}
	return out
}

func cleanTopics(in []string) []string {
	out := []string{}
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ToModel account thuộc userID
func (in *AccountCreateInput) ToModel(userID primitive.ObjectID) (automodels.Account, error) {
	weights, err := castWeights(in.CastWeights)
	if err != nil {
		return automodels.Account{}, err
	}
	return automodels.Account{
		UserID:        userID,
		OwnerEmail:    strings.TrimSpace(in.OwnerEmail),
		DisplayName:   strings.TrimSpace(in.DisplayName),
		Bio:           in.Bio,
		CreativeBrief: in.CreativeBrief,
		Enabled:       in.Enabled,
		TopicQueue:    cleanTopics(in.TopicQueue),
		CastWeights:   weights,
		PostSchedule:  in.PostSchedule,
		Platforms:     platforms(in.Platforms),
	}, nil
}

// AccountUpdateInput cập nhật cấu hình; field nil giữ nguyên
type AccountUpdateInput struct {
	DisplayName   *string            `json:"displayName,omitempty" validate:"omitempty,max=100,no_xss"`
	OwnerEmail    *string            `json:"ownerEmail,omitempty" validate:"omitempty,email"`
	Bio           *string            `json:"bio,omitempty" validate:"omitempty,max=1000,no_xss"`
	CreativeBrief *string            `json:"creativeBrief,omitempty" validate:"omitempty,max=4000,no_xss"`
	Enabled       *bool              `json:"enabled,omitempty"`
	CastWeights   *[]CastWeightInput `json:"castWeights,omitempty" validate:"omitempty,dive"`
	PostSchedule  *string            `json:"postSchedule,omitempty" validate:"omitempty,hhmm"`
	Platforms     *[]PlatformInput   `json:"platforms,omitempty" validate:"omitempty,dive"`
}

// ToSet các field cần $set
func (in *AccountUpdateInput) ToSet() (bson.M, error) {
	set := bson.M{}
	if in.DisplayName != nil {
		set["displayName"] = strings.TrimSpace(*in.DisplayName)
	}
	if in.OwnerEmail != nil {
		set["ownerEmail"] = strings.TrimSpace(*in.OwnerEmail)
	}
	if in.Bio != nil {
		set["bio"] = *in.Bio
	}
	if in.CreativeBrief != nil {
		set["creativeBrief"] = *in.CreativeBrief
	}
	if in.Enabled != nil {
		set["enabled"] = *in.Enabled
	}
	if in.CastWeights != nil {
		weights, err := castWeights(*in.CastWeights)
		if err != nil {
			return nil, err
		}
		set["castWeights"] = weights
	}
	if in.PostSchedule != nil {
		set["postSchedule"] = *in.PostSchedule
	}
	if in.Platforms != nil {
		set["platforms"] = platforms(*in.Platforms)
	}
	return set, nil
}

// TopicInput thêm một topic vào cuối hàng đợi
type TopicInput struct {
	Topic string `json:"topic" validate:"required,max=500,no_xss"`
}
