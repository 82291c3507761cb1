// Package studiodto chứa DTO cho domain studio (project, render webhook).
package studiodto

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/common"
)

// ProjectCreateInput input tạo video: cần topic hoặc ít nhất một url
type ProjectCreateInput struct {
	Topic          string   `json:"topic" validate:"topic_or_urls,omitempty,max=500,no_xss"`
	URLs           []string `json:"urls,omitempty" validate:"omitempty,max=10,dive,url"`
	CastID         string   `json:"castId" validate:"required,len=24,hexadecimal"`
	DoMoreResearch bool     `json:"doMoreResearch,omitempty"`
}

// SeedTopic topic đầu vào
func (in ProjectCreateInput) SeedTopic() string { return in.Topic }

// SeedURLs danh sách url đầu vào
func (in ProjectCreateInput) SeedURLs() []string { return in.URLs }

// ResolveTopic topic sẽ lưu; chỉ có url thì dùng "Video for <url đầu tiên>"
func (in *ProjectCreateInput) ResolveTopic() (string, error) {
	if t := strings.TrimSpace(in.Topic); t != "" {
		return t, nil
	}
	for _, u := range in.URLs {
		if u = strings.TrimSpace(u); u != "" {
			return "Video for " + u, nil
		}
	}
	return "", common.ErrMissingSeed
}

// CleanURLs bỏ url rỗng
func (in *ProjectCreateInput) CleanURLs() []string {
	var out []string
	for _, u := range in.URLs {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// ParseCastID castId dạng ObjectID
func (in *ProjectCreateInput) ParseCastID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(in.CastID)
	if err != nil {
		return primitive.NilObjectID, common.ValidationError("Invalid castId: " + in.CastID)
	}
	return id, nil
}

// ProjectListQuery query phân trang
type ProjectListQuery struct {
	Page  int64 `query:"page"`
	Limit int64 `query:"limit"`
}

// Normalize giới hạn page/limit
func (q *ProjectListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}

// RunStartedOutput phản hồi khi một run được khởi động
type RunStartedOutput struct {
	ProjectID string `json:"projectId"`
	RunID     string `json:"runId"`
}
