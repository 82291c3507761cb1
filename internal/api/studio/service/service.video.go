package studiosvc

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	basesvc "shorts_farm/internal/api/base/service"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/global"
)

// VideoService quản lý video đã render
type VideoService struct {
	*basesvc.BaseServiceMongoImpl[models.Video]
}

// NewVideoService tạo service trên collection videos
func NewVideoService(db *mongo.Database) *VideoService {
	return &VideoService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.Video](db.Collection(global.MongoDB_ColNames.Videos)),
	}
}

// CreateVideo lưu video mới
func (s *VideoService) CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error) {
	created, err := s.InsertOne(ctx, *video)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetVideo lấy video theo id
func (s *VideoService) GetVideo(ctx context.Context, id primitive.ObjectID) (*models.Video, error) {
	v, err := s.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// DeleteVideo xóa video chưa được gắn vào project
func (s *VideoService) DeleteVideo(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.DeleteMany(ctx, bson.M{"_id": id})
	return err
}

// AppendPublished ghi nhận media id đã đăng lên một nền tảng
func (s *VideoService) AppendPublished(ctx context.Context, id primitive.ObjectID, platform, mediaID string) error {
	_, err := s.FindOneAndUpdate(ctx, bson.M{"_id": id}, &basesvc.UpdateData{Push: bson.M{
		"published": models.PublishedMedia{
			Platform:    platform,
			MediaID:     mediaID,
			PublishedAt: time.Now().UnixMilli(),
		},
	}})
	return err
}
