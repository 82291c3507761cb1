package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProjectStatus trạng thái của project trong pipeline
type ProjectStatus string

// Các trạng thái theo thứ tự stage, "error" có thể tới từ bất kỳ trạng thái nào
const (
	ProjectStatusGathering        ProjectStatus = "gathering"         // Thu thập nội dung nguồn
	ProjectStatusPlanning         ProjectStatus = "planning"          // Lập kế hoạch scene
	ProjectStatusWriting          ProjectStatus = "writing"           // Viết thoại
	ProjectStatusGeneratingVoices ProjectStatus = "generating-voices" // Tổng hợp giọng nói + caption
	ProjectStatusRendering        ProjectStatus = "rendering"         // Đã gửi job render, chờ kết quả
	ProjectStatusDone             ProjectStatus = "done"              // Đã có video
	ProjectStatusError            ProjectStatus = "error"             // Lỗi hoặc bị hủy, xem StatusMessage
)

// PlanDialogue một lượt thoại dự kiến trong plan (chưa có lời thoại cuối)
type PlanDialogue struct {
	CharacterID     primitive.ObjectID `json:"characterId" bson:"characterId"`
	LineDescription string             `json:"lineDescription" bson:"lineDescription"`
}

// PlanScene một scene trong plan do planning stage sinh ra
type PlanScene struct {
	SceneNumber     int            `json:"sceneNumber" bson:"sceneNumber"`
	ContentImageURL string         `json:"contentImageUrl,omitempty" bson:"contentImageUrl,omitempty"`
	DialoguePlan    []PlanDialogue `json:"dialoguePlan" bson:"dialoguePlan"`
}

// Socials metadata mạng xã hội sinh ra sau khi render xong
type Socials struct {
	ThumbnailURL    string `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	ThumbnailPrompt string `json:"thumbnailPrompt,omitempty" bson:"thumbnailPrompt,omitempty"`
	SocialMediaCopy string `json:"socialMediaCopy,omitempty" bson:"socialMediaCopy,omitempty"`
}

// Project một yêu cầu tạo video (từ user hoặc từ automation account)
// Collection: projects
type Project struct {
	ID primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`

	// ===== SEED =====
	Topic  string             `json:"topic" bson:"topic"`
	URLs   []string           `json:"urls,omitempty" bson:"urls,omitempty"`
	UserID primitive.ObjectID `json:"userId" bson:"userId" index:"single:1"`
	CastID primitive.ObjectID `json:"castId" bson:"castId"`

	// Chỉ có với project do scheduler tạo
	AccountID      *primitive.ObjectID `json:"accountId,omitempty" bson:"accountId,omitempty" index:"single:1"`
	DoMoreResearch bool                `json:"doMoreResearch,omitempty" bson:"doMoreResearch,omitempty"`

	// ===== STATUS =====
	Status        ProjectStatus `json:"status" bson:"status" index:"single:1"`
	StatusMessage string        `json:"statusMessage,omitempty" bson:"statusMessage,omitempty"`
	WorkflowRunID string        `json:"workflowRunId,omitempty" bson:"workflowRunId,omitempty"`

	// ===== ARTIFACTS =====
	Plan     []PlanScene         `json:"plan,omitempty" bson:"plan,omitempty"`
	ScriptID *primitive.ObjectID `json:"scriptId,omitempty" bson:"scriptId,omitempty"`
	VideoID  *primitive.ObjectID `json:"videoId,omitempty" bson:"videoId,omitempty"`

	// ===== RENDER TRACKING =====
	RenderID   string `json:"renderId,omitempty" bson:"renderId,omitempty" index:"single:1"`
	BucketName string `json:"bucketName,omitempty" bson:"bucketName,omitempty"`

	// ===== POST-RENDER =====
	Socials     *Socials `json:"socials,omitempty" bson:"socials,omitempty"`
	SocialError string   `json:"socialError,omitempty" bson:"socialError,omitempty"`

	// Đã pop đầu hàng đợi topic của account cho project này
	TopicConsumed bool `json:"topicConsumed,omitempty" bson:"topicConsumed,omitempty"`

	CreatedAt int64 `json:"createdAt" bson:"createdAt" index:"single:1"`
	UpdatedAt int64 `json:"updatedAt" bson:"updatedAt"`
}

// HasPlan project đã có plan chưa
func (p *Project) HasPlan() bool {
	return len(p.Plan) > 0
}

// IsAccountTagged project được tạo bởi automation account
func (p *Project) IsAccountTagged() bool {
	return p.AccountID != nil && !p.AccountID.IsZero()
}

// ProjectReset các trường cần đặt lại khi rerun
type ProjectReset struct {
	Status        ProjectStatus
	StatusMessage string // Rỗng thì xóa statusMessage
	ClearPlan     bool
	ClearScript   bool
	ClearVideo    bool
	ClearRender   bool
	ClearSocials  bool
}
