package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PublishedMedia bản ghi đăng video lên một nền tảng
type PublishedMedia struct {
	Platform    string `json:"platform" bson:"platform"`
	MediaID     string `json:"mediaId" bson:"mediaId"`
	PublishedAt int64  `json:"publishedAt" bson:"publishedAt"`
}

// Video video cuối cùng sau khi render thành công
// Collection: videos
type Video struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID primitive.ObjectID `json:"projectId" bson:"projectId" index:"single:1"`
	FinalURL  string             `json:"finalUrl" bson:"finalUrl"`
	RenderID  string             `json:"renderId,omitempty" bson:"renderId,omitempty"`

	Published []PublishedMedia `json:"published,omitempty" bson:"published,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}
