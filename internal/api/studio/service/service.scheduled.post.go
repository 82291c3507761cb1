package studiosvc

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basesvc "shorts_farm/internal/api/base/service"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/global"
)

// StalePublishingAfter bài đang publishing quá lâu (worker chết giữa chừng) được claim lại
const StalePublishingAfter = 30 * time.Minute

// ScheduledPostService quản lý bài đăng hẹn giờ
type ScheduledPostService struct {
	*basesvc.BaseServiceMongoImpl[models.ScheduledPost]
}

// NewScheduledPostService tạo service trên collection scheduled_posts
func NewScheduledPostService(db *mongo.Database) *ScheduledPostService {
	return &ScheduledPostService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.ScheduledPost](db.Collection(global.MongoDB_ColNames.ScheduledPosts)),
	}
}

// SchedulePost lưu bài đăng ở trạng thái pending
func (s *ScheduledPostService) SchedulePost(ctx context.Context, post *models.ScheduledPost) error {
	post.Status = models.ScheduledPostStatusPending
	created, err := s.InsertOne(ctx, *post)
	if err != nil {
		return err
	}
	post.ID = created.ID
	return nil
}

// ClaimDue claim nguyên tử một bài đã tới giờ; nil nếu không còn bài nào
func (s *ScheduledPostService) ClaimDue(ctx context.Context, now time.Time) (*models.ScheduledPost, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"status": models.ScheduledPostStatusPending, "publishAt": bson.M{"$lte": now.UnixMilli()}},
		bson.M{"status": models.ScheduledPostStatusPublishing, "updatedAt": bson.M{"$lte": now.Add(-StalePublishingAfter).UnixMilli()}},
	}}
	// updatedAt lấy theo now của worker để mốc stale nhất quán
	update := bson.M{
		"$set": bson.M{"status": models.ScheduledPostStatusPublishing, "updatedAt": now.UnixMilli()},
		"$inc": bson.M{"attempts": 1},
	}
	var post models.ScheduledPost
	err := s.Collection().FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "publishAt", Value: 1}}).
		SetReturnDocument(options.After)).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, common.ConvertMongoError(err)
	}
	return &post, nil
}

// MarkPublished ghi media id, publishing -> published
func (s *ScheduledPostService) MarkPublished(ctx context.Context, id primitive.ObjectID, mediaID string) error {
	_, err := s.UpdateOne(ctx, bson.M{"_id": id, "status": models.ScheduledPostStatusPublishing}, &basesvc.UpdateData{
		Set:   bson.M{"status": models.ScheduledPostStatusPublished, "mediaId": mediaID},
		Unset: bson.M{"error": ""},
	})
	return err
}

// MarkFailed ghi lỗi, publishing -> failed
func (s *ScheduledPostService) MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error {
	_, err := s.UpdateOne(ctx, bson.M{"_id": id, "status": models.ScheduledPostStatusPublishing}, &basesvc.UpdateData{
		Set: bson.M{"status": models.ScheduledPostStatusFailed, "error": message},
	})
	return err
}

// ListByProject bài đăng của project
func (s *ScheduledPostService) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.ScheduledPost, error) {
	return s.Find(ctx, bson.M{"projectId": projectID}, options.Find().SetSort(bson.D{{Key: "publishAt", Value: 1}}))
}
