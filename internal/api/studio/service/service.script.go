package studiosvc

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	basesvc "shorts_farm/internal/api/base/service"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/global"
)

// ScriptService quản lý scripts: tạo một lần, sau đó chỉ gắn audio và caption
type ScriptService struct {
	*basesvc.BaseServiceMongoImpl[models.Script]
}

// NewScriptService tạo service trên collection scripts
func NewScriptService(db *mongo.Database) *ScriptService {
	return &ScriptService{
		BaseServiceMongoImpl: basesvc.NewBaseServiceMongo[models.Script](db.Collection(global.MongoDB_ColNames.Scripts)),
	}
}

// CreateScript lưu script mới
func (s *ScriptService) CreateScript(ctx context.Context, script *models.Script) (*models.Script, error) {
	created, err := s.InsertOne(ctx, *script)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetScript lấy script theo id
func (s *ScriptService) GetScript(ctx context.Context, id primitive.ObjectID) (*models.Script, error) {
	script, err := s.FindOneById(ctx, id)
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// FindScriptByProject script của project
func (s *ScriptService) FindScriptByProject(ctx context.Context, projectID primitive.ObjectID) (*models.Script, error) {
	script, err := s.FindOne(ctx, bson.M{"projectId": projectID}, nil)
	if err != nil {
		return nil, err
	}
	return &script, nil
}

// AttachTurnAudio gắn audio cho lượt thoại theo vị trí scene/turn
func (s *ScriptService) AttachTurnAudio(ctx context.Context, scriptID primitive.ObjectID, sceneIndex, turnIndex int, audio models.TurnAudio) error {
	prefix := fmt.Sprintf("scenes.%d.dialogues.%d.", sceneIndex, turnIndex)
	_, err := s.FindOneAndUpdate(ctx, bson.M{"_id": scriptID}, &basesvc.UpdateData{Set: bson.M{
		prefix + "voiceUrl":      audio.VoiceURL,
		prefix + "audioDuration": audio.DurationSeconds,
		prefix + "wordCaptions":  audio.WordCaptions,
	}})
	return err
}

// AttachCaptions lưu danh sách caption tổng của script
func (s *ScriptService) AttachCaptions(ctx context.Context, scriptID primitive.ObjectID, captions []models.Caption) error {
	_, err := s.FindOneAndUpdate(ctx, bson.M{"_id": scriptID}, &basesvc.UpdateData{Set: bson.M{"captions": captions}})
	return err
}

// DeleteScriptsByProject xóa script khi rerun từ đầu
func (s *ScriptService) DeleteScriptsByProject(ctx context.Context, projectID primitive.ObjectID) error {
	_, err := s.DeleteMany(ctx, bson.M{"projectId": projectID})
	return err
}
