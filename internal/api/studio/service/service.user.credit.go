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

// UserCreditService lượt tạo video của user. User mới bắt đầu với InitialVideoCredits.
type UserCreditService struct {
	*basesvc.BaseServiceMongoImpl[models.UserCredit]
}

// NewUserCreditService tạo service trên collection user_credits
func NewUserCreditService(db *mongo.Database) *UserCreditService {
	return &UserCreditService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.UserCredit](db.Collection(global.MongoDB_ColNames.UserCredits)),
	}
}

// ensure tạo bản ghi với số lượt mặc định nếu chưa có
func (s *UserCreditService) ensure(ctx context.Context, userID primitive.ObjectID) error {
	now := time.Now().UnixMilli()
	_, err := s.Collection().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$setOnInsert": bson.M{
			"userId":     userID,
			"tokensLeft": models.InitialVideoCredits,
			"createdAt":  now,
			"updatedAt":  now,
		}},
		options.Update().SetUpsert(true),
	)
	// Hai request cùng tạo: unique index chặn một bên, bản ghi vẫn tồn tại
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return common.ConvertMongoError(err)
	}
	return nil
}

// GetCredits số lượt còn lại của user
func (s *UserCreditService) GetCredits(ctx context.Context, userID primitive.ObjectID) (*models.UserCredit, error) {
	if err := s.ensure(ctx, userID); err != nil {
		return nil, err
	}
	c, err := s.FindOne(ctx, bson.M{"userId": userID}, nil)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ConsumeCredit trừ 1 lượt; hết lượt trả về common.ErrInsufficientCredits
func (s *UserCreditService) ConsumeCredit(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.ensure(ctx, userID); err != nil {
		return err
	}
	_, err := s.FindOneAndUpdate(ctx,
		bson.M{"userId": userID, "tokensLeft": bson.M{"$gt": 0}},
		&basesvc.UpdateData{Inc: bson.M{"tokensLeft": -1}},
	)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrInsufficientCredits
	}
	return err
}

// RefundCredit hoàn 1 lượt khi không tạo được project
func (s *UserCreditService) RefundCredit(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.FindOneAndUpdate(ctx, bson.M{"userId": userID}, &basesvc.UpdateData{Inc: bson.M{"tokensLeft": 1}})
	return err
}
