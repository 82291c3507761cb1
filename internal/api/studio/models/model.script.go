package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caption một token thoại có timestamp (word-level), sinh ra từ transcription
type Caption struct {
	Text        string   `json:"text" bson:"text"`
	StartMs     int64    `json:"startMs" bson:"startMs"`
	EndMs       int64    `json:"endMs" bson:"endMs"`
	TimestampMs int64    `json:"timestampMs" bson:"timestampMs"`
	Confidence  *float64 `json:"confidence" bson:"confidence"`
}

// DialogueTurn một lượt thoại. Sau khi có voice, Line không được thay đổi nữa
type DialogueTurn struct {
	CharacterID primitive.ObjectID `json:"characterId" bson:"characterId"`
	Line        string             `json:"line" bson:"line"`
	Expression  string             `json:"characterExpression" bson:"characterExpression"`
	AssetURL    string             `json:"characterAssetUrl,omitempty" bson:"characterAssetUrl,omitempty"`

	// ===== AUDIO (chỉ có sau voice stage) =====
	VoiceURL             string    `json:"voiceUrl,omitempty" bson:"voiceUrl,omitempty"`
	AudioDurationSeconds *float64  `json:"audioDuration,omitempty" bson:"audioDuration,omitempty"`
	WordCaptions         []Caption `json:"wordCaptions,omitempty" bson:"wordCaptions,omitempty"` // Caption tương đối với đầu lượt thoại
}

// IsVoiced lượt thoại đã có audio
func (d *DialogueTurn) IsVoiced() bool {
	return d.VoiceURL != "" && d.AudioDurationSeconds != nil
}

// Scene một cảnh trong script, SceneNumber bắt đầu từ 1 và liên tục
type Scene struct {
	SceneNumber     int            `json:"sceneNumber" bson:"sceneNumber"`
	ContentImageURL string         `json:"contentImageUrl,omitempty" bson:"contentImageUrl,omitempty"`
	Dialogues       []DialogueTurn `json:"dialogues" bson:"dialogues"`
}

// Script kịch bản của một project
// Collection: scripts
type Script struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	ProjectID primitive.ObjectID `json:"projectId" bson:"projectId" index:"single:1"`
	Scenes    []Scene            `json:"scenes" bson:"scenes"`
	Captions  []Caption          `json:"captions,omitempty" bson:"captions,omitempty"`
	CreatedAt int64              `json:"createdAt" bson:"createdAt"`
	UpdatedAt int64              `json:"updatedAt" bson:"updatedAt"`
}

// FullyVoiced tất cả lượt thoại đã có audio và đã có caption tổng
func (s *Script) FullyVoiced() bool {
	if s == nil || len(s.Captions) == 0 {
		return false
	}
	for i := range s.Scenes {
		for j := range s.Scenes[i].Dialogues {
			if !s.Scenes[i].Dialogues[j].IsVoiced() {
				return false
			}
		}
	}
	return true
}

// TurnCount tổng số lượt thoại
func (s *Script) TurnCount() int {
	n := 0
	for i := range s.Scenes {
		n += len(s.Scenes[i].Dialogues)
	}
	return n
}

// TurnAudio kết quả voice stage cho một lượt thoại
type TurnAudio struct {
	VoiceURL        string
	DurationSeconds float64
	WordCaptions    []Caption
}
