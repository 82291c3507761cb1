package automationsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	automodels "shorts_farm/internal/api/automation/models"
	basesvc "shorts_farm/internal/api/base/service"
	"shorts_farm/internal/common"
	"shorts_farm/internal/global"
)

// AccountService quản lý automation account và hàng đợi topic
type AccountService struct {
	*basesvc.BaseServiceMongoImpl[automodels.Account]
}

// NewAccountService tạo service trên collection automation_accounts
func NewAccountService(db *mongo.Database) *AccountService {
	return &AccountService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[automodels.Account](db.Collection(global.MongoDB_ColNames.AutomationAccounts)),
	}
}

// CreateAccount tạo account
func (s *AccountService) CreateAccount(ctx context.Context, a automodels.Account) (*automodels.Account, error) {
	if a.TopicQueue == nil {
		a.TopicQueue = []string{}
	}
	created, err := s.InsertOne(ctx, a)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetAccount lấy account theo id
func (s *AccountService) GetAccount(ctx context.Context, id primitive.ObjectID) (*automodels.Account, error) {
	a, err := s.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetOwnedAccount lấy account và kiểm tra thuộc user
func (s *AccountService) GetOwnedAccount(ctx context.Context, id, userID primitive.ObjectID) (*automodels.Account, error) {
	a, err := s.FindOne(ctx, bson.M{"_id": id, "userId": userID}, nil)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUser account của user
func (s *AccountService) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]automodels.Account, error) {
	return s.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// ListEnabledAccounts account đang bật automation
func (s *AccountService) ListEnabledAccounts(ctx context.Context) ([]automodels.Account, error) {
	return s.Find(ctx, bson.M{"enabled": true}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// AppendTopic thêm topic vào cuối hàng đợi
func (s *AccountService) AppendTopic(ctx context.Context, id primitive.ObjectID, topic string) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("topic: %w", common.ErrRequiredField)
	}
	matched, err := s.UpdateOne(ctx, bson.M{"_id": id}, &basesvc.UpdateData{Push: bson.M{"topicQueue": topic}})
	if err != nil {
		return err
	}
	if !matched {
		return common.ErrNotFound
	}
	return nil
}

// RemoveTopicAt xóa topic theo vị trí. Chỉ ghi khi hàng đợi chưa đổi kể từ lúc đọc
// (cùng độ dài, cùng topic tại vị trí đó), ngược lại trả về 409.
func (s *AccountService) RemoveTopicAt(ctx context.Context, id primitive.ObjectID, index int) (*automodels.Account, error) {
	a, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(a.TopicQueue) {
		return nil, common.ValidationError(fmt.Sprintf("topic index %d out of range", index))
	}
	topic := a.TopicQueue[index]
	queue := append(append([]string{}, a.TopicQueue[:index]...), a.TopicQueue[index+1:]...)

	updated, err := s.FindOneAndUpdate(ctx,
		bson.M{"_id": id, fmt.Sprintf("topicQueue.%d", index): topic, "topicQueue": bson.M{"$size": len(a.TopicQueue)}},
		&basesvc.UpdateData{Set: bson.M{"topicQueue": queue}},
	)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewError(common.ErrCodeBusinessState, "topic queue changed, reload and retry", common.StatusConflict, nil)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ClearTopics xóa toàn bộ hàng đợi
func (s *AccountService) ClearTopics(ctx context.Context, id primitive.ObjectID) error {
	matched, err := s.UpdateOne(ctx, bson.M{"_id": id}, &basesvc.UpdateData{Set: bson.M{"topicQueue": []string{}}})
	if err != nil {
		return err
	}
	if !matched {
		return common.ErrNotFound
	}
	return nil
}

// PopTopicIfHead pop đầu hàng đợi chỉ khi đầu hàng đợi vẫn là topic
func (s *AccountService) PopTopicIfHead(ctx context.Context, id primitive.ObjectID, topic string) (bool, error) {
	return s.UpdateOne(ctx,
		bson.M{"_id": id, "topicQueue.0": topic},
		&basesvc.UpdateData{Pop: bson.M{"topicQueue": -1}},
	)
}

// UpdateSettings cập nhật cấu hình automation
func (s *AccountService) UpdateSettings(ctx context.Context, id primitive.ObjectID, set bson.M) (*automodels.Account, error) {
	if len(set) == 0 {
		return s.GetAccount(ctx, id)
	}
	a, err := s.FindOneAndUpdate(ctx, bson.M{"_id": id}, &basesvc.UpdateData{Set: set})
	if err != nil {
		return nil, err
	}
	return &a, nil
}
