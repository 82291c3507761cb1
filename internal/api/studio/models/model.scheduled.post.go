package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduledPostStatus trạng thái bài đăng hẹn giờ
const (
	ScheduledPostStatusPending    = "pending"    // Chờ tới giờ đăng
	ScheduledPostStatusPublishing = "publishing" // Worker đã claim
	ScheduledPostStatusPublished  = "published"  // Đăng thành công
	ScheduledPostStatusFailed     = "failed"     // Đăng thất bại
)

// ScheduledPost bài đăng hẹn giờ sinh ra bởi post-render workflow
// Collection: scheduled_posts
type ScheduledPost struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID primitive.ObjectID `json:"projectId" bson:"projectId" index:"single:1"`
	VideoID   primitive.ObjectID `json:"videoId" bson:"videoId"`
	AccountID primitive.ObjectID `json:"accountId" bson:"accountId" index:"single:1"`
	Platform  string             `json:"platform" bson:"platform"`
	VideoURL  string             `json:"videoUrl" bson:"videoUrl"`
	Caption   string             `json:"caption" bson:"caption"`
	CoverURL  string             `json:"coverUrl,omitempty" bson:"coverUrl,omitempty"`

	Status    string `json:"status" bson:"status" index:"compound:status_publish_at"`
	PublishAt int64  `json:"publishAt" bson:"publishAt" index:"compound:status_publish_at"`
	Attempts  int    `json:"attempts" bson:"attempts"`
	Error     string `json:"error,omitempty" bson:"error,omitempty"`
	MediaID   string `json:"mediaId,omitempty" bson:"mediaId,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
