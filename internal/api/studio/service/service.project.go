package studiosvc

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	basemodels "shorts_farm/internal/api/base/models"
	basesvc "shorts_farm/internal/api/base/service"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/global"
)

// activeStatuses các trạng thái coi là project đang chạy
var activeStatuses = []models.ProjectStatus{
	models.ProjectStatusGathering,
	models.ProjectStatusPlanning,
	models.ProjectStatusWriting,
	models.ProjectStatusGeneratingVoices,
	models.ProjectStatusRendering,
}

// ProjectService quản lý projects. Mọi thay đổi trạng thái là update có điều kiện.
type ProjectService struct {
	*basesvc.BaseServiceMongoImpl[models.Project]
}

// NewProjectService tạo service trên collection projects
func NewProjectService(db *mongo.Database) *ProjectService {
	return &ProjectService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.Project](db.Collection(global.MongoDB_ColNames.Projects)),
	}
}

// conditional chạy update và đổi "không khớp" thành ErrInvalidState, phân biệt với không tồn tại
func (s *ProjectService) conditional(ctx context.Context, id primitive.ObjectID, filter bson.M, update *basesvc.UpdateData) error {
	filter["_id"] = id
	matched, err := s.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if matched {
		return nil
	}
	exists, err := s.DocumentExists(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if !exists {
		return common.ErrNotFound
	}
	return common.ErrInvalidState
}

// CreateProject lưu project mới
func (s *ProjectService) CreateProject(ctx context.Context, p *models.Project) (*models.Project, error) {
	if p.Status == "" {
		p.Status = models.ProjectStatusGathering
	}
	created, err := s.InsertOne(ctx, *p)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetProject lấy project theo id
func (s *ProjectService) GetProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	p, err := s.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByUser danh sách project của user, mới nhất trước
func (s *ProjectService) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) (*basemodels.PaginateResult[models.Project], error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return s.FindWithPagination(ctx, bson.M{"userId": userID}, page, limit, opts)
}

// FindProjectByRenderID tìm project theo render job
func (s *ProjectService) FindProjectByRenderID(ctx context.Context, renderID string) (*models.Project, error) {
	if renderID == "" {
		return nil, common.ErrNotFound
	}
	p, err := s.FindOne(ctx, bson.M{"renderId": renderID}, nil)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListRendering các project đang chờ render, dùng cho poller
func (s *ProjectService) ListRendering(ctx context.Context) ([]models.Project, error) {
	return s.Find(ctx, bson.M{
		"status":   models.ProjectStatusRendering,
		"renderId": bson.M{"$exists": true, "$ne": ""},
	}, nil)
}

// HasActiveProjectForAccount account có project chưa kết thúc không
func (s *ProjectService) HasActiveProjectForAccount(ctx context.Context, accountID primitive.ObjectID) (bool, error) {
	return s.DocumentExists(ctx, bson.M{
		"accountId": accountID,
		"status":    bson.M{"$in": activeStatuses},
	})
}

// RecentTopicsByAccount topic của các project gần nhất của account
func (s *ProjectService) RecentTopicsByAccount(ctx context.Context, accountID primitive.ObjectID, limit int) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"topic": 1})
	projects, err := s.Find(ctx, bson.M{"accountId": accountID}, opts)
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Topic != "" {
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

// SetWorkflowRunID ghi id của run hiện tại
func (s *ProjectService) SetWorkflowRunID(ctx context.Context, id primitive.ObjectID, runID string) error {
	return s.conditional(ctx, id, bson.M{}, &basesvc.UpdateData{Set: bson.M{"workflowRunId": runID}})
}

// AdvanceStage chuyển from -> to, chỉ khi status hiện tại bằng from
func (s *ProjectService) AdvanceStage(ctx context.Context, id primitive.ObjectID, from, to models.ProjectStatus) error {
	return s.conditional(ctx, id, bson.M{"status": from}, &basesvc.UpdateData{Set: bson.M{"status": to}})
}

// RecordFailure chuyển sang error kèm message
func (s *ProjectService) RecordFailure(ctx context.Context, id primitive.ObjectID, message string) error {
	return s.conditional(ctx, id, bson.M{}, &basesvc.UpdateData{Set: bson.M{
		"status":        models.ProjectStatusError,
		"statusMessage": message,
	}})
}

// AttachPlan lưu plan, planning -> writing
func (s *ProjectService) AttachPlan(ctx context.Context, id primitive.ObjectID, plan []models.PlanScene) error {
	return s.conditional(ctx, id, bson.M{"status": models.ProjectStatusPlanning}, &basesvc.UpdateData{Set: bson.M{
		"plan":   plan,
		"status": models.ProjectStatusWriting,
	}})
}

// AttachScript lưu scriptId, writing -> generating-voices
func (s *ProjectService) AttachScript(ctx context.Context, id primitive.ObjectID, scriptID primitive.ObjectID) error {
	return s.conditional(ctx, id, bson.M{"status": models.ProjectStatusWriting}, &basesvc.UpdateData{Set: bson.M{
		"scriptId": scriptID,
		"status":   models.ProjectStatusGeneratingVoices,
	}})
}

// AttachRender lưu handle của job render
func (s *ProjectService) AttachRender(ctx context.Context, id primitive.ObjectID, renderID, bucket string) error {
	return s.conditional(ctx, id, bson.M{"status": models.ProjectStatusRendering}, &basesvc.UpdateData{Set: bson.M{
		"renderId":   renderID,
		"bucketName": bucket,
	}})
}

// AttachVideo chỉ áp dụng khi đang rendering với đúng renderID; chuyển sang done
func (s *ProjectService) AttachVideo(ctx context.Context, id primitive.ObjectID, renderID string, videoID primitive.ObjectID) error {
	return s.conditional(ctx, id, bson.M{
		"status":   models.ProjectStatusRendering,
		"renderId": renderID,
	}, &basesvc.UpdateData{
		Set:   bson.M{"videoId": videoID, "status": models.ProjectStatusDone},
		Unset: bson.M{"statusMessage": ""},
	})
}

// ResetForRerun đặt lại trạng thái và xóa các artifact được chọn
func (s *ProjectService) ResetForRerun(ctx context.Context, id primitive.ObjectID, r models.ProjectReset) error {
	return s.conditional(ctx, id, bson.M{}, resetUpdate(r))
}

func resetUpdate(r models.ProjectReset) *basesvc.UpdateData {
	update := &basesvc.UpdateData{Set: bson.M{"status": r.Status}, Unset: bson.M{}}
	if r.StatusMessage != "" {
		update.Set["statusMessage"] = r.StatusMessage
	} else {
		update.Unset["statusMessage"] = ""
	}
	if r.ClearPlan {
		update.Unset["plan"] = ""
	}
	if r.ClearScript {
		update.Unset["scriptId"] = ""
	}
	if r.ClearVideo {
		update.Unset["videoId"] = ""
	}
	if r.ClearRender {
		update.Unset["renderId"] = ""
		update.Unset["bucketName"] = ""
	}
	if r.ClearSocials {
		update.Unset["socials"] = ""
		update.Unset["socialError"] = ""
	}
	return update
}

// SaveSocials lưu metadata mạng xã hội, xóa lỗi cũ
func (s *ProjectService) SaveSocials(ctx context.Context, id primitive.ObjectID, socials models.Socials) error {
	return s.conditional(ctx, id, bson.M{}, &basesvc.UpdateData{
		Set:   bson.M{"socials": socials},
		Unset: bson.M{"socialError": ""},
	})
}

// RecordSocialError ghi lỗi post-render, không đổi status
func (s *ProjectService) RecordSocialError(ctx context.Context, id primitive.ObjectID, message string) error {
	return s.conditional(ctx, id, bson.M{}, &basesvc.UpdateData{Set: bson.M{"socialError": message}})
}

// MarkTopicConsumed đánh dấu một lần duy nhất; false nếu đã đánh dấu trước đó
func (s *ProjectService) MarkTopicConsumed(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.conditional(ctx, id, bson.M{"topicConsumed": bson.M{"$ne": true}}, &basesvc.UpdateData{Set: bson.M{"topicConsumed": true}})
	if errors.Is(err, common.ErrInvalidState) {
		return false, nil
	}
	return err == nil, err
}
