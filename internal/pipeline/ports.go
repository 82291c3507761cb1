package pipeline

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/timeline"
)

// ====================================
// PERSISTENCE
// ====================================

// ProjectStore tập thao tác đóng trên Project. Mỗi hàm là một update có điều kiện,
// không có thao tác merge tùy ý.
type ProjectStore interface {
	GetProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	FindProjectByRenderID(ctx context.Context, renderID string) (*models.Project, error)
	SetWorkflowRunID(ctx context.Context, id primitive.ObjectID, runID string) error
	// AdvanceStage chỉ áp dụng khi status hiện tại bằng from
	AdvanceStage(ctx context.Context, id primitive.ObjectID, from, to models.ProjectStatus) error
	RecordFailure(ctx context.Context, id primitive.ObjectID, message string) error
	// AttachPlan lưu plan và chuyển planning -> writing
	AttachPlan(ctx context.Context, id primitive.ObjectID, plan []models.PlanScene) error
	// AttachScript lưu scriptId và chuyển writing -> generating-voices
	AttachScript(ctx context.Context, id primitive.ObjectID, scriptID primitive.ObjectID) error
	AttachRender(ctx context.Context, id primitive.ObjectID, renderID, bucket string) error
	// AttachVideo chỉ áp dụng khi project đang rendering với đúng renderID, chuyển sang done
	AttachVideo(ctx context.Context, id primitive.ObjectID, renderID string, videoID primitive.ObjectID) error
	ResetForRerun(ctx context.Context, id primitive.ObjectID, reset models.ProjectReset) error
	SaveSocials(ctx context.Context, id primitive.ObjectID, socials models.Socials) error
	RecordSocialError(ctx context.Context, id primitive.ObjectID, message string) error
	// MarkTopicConsumed trả về false nếu đã đánh dấu trước đó
	MarkTopicConsumed(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// ScriptStore thao tác trên Script: tạo một lần, sau đó chỉ patch audio/caption
type ScriptStore interface {
	CreateScript(ctx context.Context, script *models.Script) (*models.Script, error)
	GetScript(ctx context.Context, id primitive.ObjectID) (*models.Script, error)
	FindScriptByProject(ctx context.Context, projectID primitive.ObjectID) (*models.Script, error)
	AttachTurnAudio(ctx context.Context, scriptID primitive.ObjectID, sceneIndex, turnIndex int, audio models.TurnAudio) error
	AttachCaptions(ctx context.Context, scriptID primitive.ObjectID, captions []models.Caption) error
	DeleteScriptsByProject(ctx context.Context, projectID primitive.ObjectID) error
}

// VideoStore lưu video cuối cùng
type VideoStore interface {
	CreateVideo(ctx context.Context, video *models.Video) (*models.Video, error)
	GetVideo(ctx context.Context, id primitive.ObjectID) (*models.Video, error)
	DeleteVideo(ctx context.Context, id primitive.ObjectID) error
}

// CastStore đọc cast, nhân vật và asset biểu cảm
type CastStore interface {
	GetCast(ctx context.Context, id primitive.ObjectID) (*models.Cast, error)
	ListCharacters(ctx context.Context, castID primitive.ObjectID) ([]models.Character, error)
	ListCharacterAssets(ctx context.Context, characterIDs []primitive.ObjectID) ([]models.Asset, error)
}

// AssetStore đọc asset nền cho render
type AssetStore interface {
	ListBackgrounds(ctx context.Context) ([]models.Asset, error)
}

// AccountStore phần của automation account mà pipeline cần
type AccountStore interface {
	GetAccount(ctx context.Context, id primitive.ObjectID) (*automodels.Account, error)
	// PopTopicIfHead chỉ pop khi phần tử đầu hàng đợi bằng topic
	PopTopicIfHead(ctx context.Context, id primitive.ObjectID, topic string) (bool, error)
}

// PostScheduler lưu bài đăng hẹn giờ
type PostScheduler interface {
	SchedulePost(ctx context.Context, post *models.ScheduledPost) error
}

// ====================================
// COLLABORATORS
// ====================================

// ResearchRequest đầu vào research
type ResearchRequest struct {
	Topic          string
	URLs           []string
	DoMoreResearch bool
}

// ResearchResult văn bản thô và ảnh ứng viên
type ResearchResult struct {
	RawText   string
	ImageURLs []string
}

// Researcher tìm kiếm và trích xuất nội dung
type Researcher interface {
	Research(ctx context.Context, req ResearchRequest) (*ResearchResult, error)
}

// CharacterBrief thông tin nhân vật gửi cho LLM
type CharacterBrief struct {
	Name        string
	Description string
	Expressions []string
}

// PlanRequest đầu vào planning
type PlanRequest struct {
	Topic     string
	RawText   string
	ImageURLs []string
	Cast      []CharacterBrief
	Dynamics  string
}

// PlannedLine lượt thoại dự kiến, nhân vật theo tên
type PlannedLine struct {
	Character       string `json:"character"`
	LineDescription string `json:"lineDescription"`
}

// PlannedScene một scene dự kiến
type PlannedScene struct {
	SceneNumber     int           `json:"sceneNumber"`
	ContentImageURL string        `json:"contentImageUrl,omitempty"`
	DialoguePlan    []PlannedLine `json:"dialoguePlan"`
}

// Planner sinh plan từ nội dung nguồn
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) ([]PlannedScene, error)
}

// WriteRequest đầu vào writing: plan đã đổi id nhân vật về tên
type WriteRequest struct {
	Topic    string
	Plan     []PlannedScene
	Cast     []CharacterBrief
	Dynamics string
}

// WrittenLine lượt thoại hoàn chỉnh
type WrittenLine struct {
	Character  string `json:"character"`
	Line       string `json:"line"`
	Expression string `json:"expression"`
	AssetURL   string `json:"assetUrl,omitempty"`
}

// WrittenScene một scene hoàn chỉnh
type WrittenScene struct {
	SceneNumber     int           `json:"sceneNumber"`
	ContentImageURL string        `json:"contentImageUrl,omitempty"`
	Dialogues       []WrittenLine `json:"dialogues"`
}

// Writer viết thoại từ plan
type Writer interface {
	Write(ctx context.Context, req WriteRequest) ([]WrittenScene, error)
}

// VoiceSynthesizer text-to-speech
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Transcription kết quả transcribe audio
type Transcription struct {
	DurationSeconds float64
	Captions        []models.Caption
}

// Transcriber speech-to-text theo từ
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (*Transcription, error)
}

// BlobStore lưu blob và trả về URL công khai
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// RenderRequest đầu vào render
type RenderRequest struct {
	ProjectID     primitive.ObjectID
	Script        *models.Script
	Timeline      timeline.Timeline
	BackgroundURL string
	Characters    []models.Character
}

// RenderJob handle của job render
type RenderJob struct {
	JobID  string
	Bucket string
}

// Renderer gửi job render, trả về ngay với handle
type Renderer interface {
	Submit(ctx context.Context, req RenderRequest) (*RenderJob, error)
}

// RenderProgressReader đọc trạng thái job; nil outcome nghĩa là job còn đang chạy
type RenderProgressReader interface {
	Progress(ctx context.Context, jobID, bucket string) (*RenderOutcome, error)
}

// SocialRequest đầu vào cho các bước sinh metadata mạng xã hội
type SocialRequest struct {
	Topic       string
	Script      *models.Script
	Characters  []models.Character
	AccountName string // Rỗng với project không thuộc account
	AccountBio  string
}

// SocialCopywriter sinh prompt thumbnail và caption đăng bài
type SocialCopywriter interface {
	ThumbnailPrompt(ctx context.Context, req SocialRequest) (string, error)
	SocialCopy(ctx context.Context, req SocialRequest) (string, error)
}

// ImageGenerator sinh ảnh từ prompt
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ====================================
// RUNTIME
// ====================================

// CancelSignals cờ hủy theo project, có thể chia sẻ giữa nhiều instance
type CancelSignals interface {
	RequestCancel(ctx context.Context, projectID string) error
	IsCancelRequested(ctx context.Context, projectID string) (bool, error)
	ClearCancel(ctx context.Context, projectID string) error
}

// FailureNotifier báo lỗi run của project thuộc automation account
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, project *models.Project, account *automodels.Account, message string) error
}

// Deps gom mọi phụ thuộc của orchestrator, truyền tường minh vào từng stage
type Deps struct {
	Projects ProjectStore
	Scripts  ScriptStore
	Videos   VideoStore
	Casts    CastStore
	Assets   AssetStore
	Accounts AccountStore
	Posts    PostScheduler

	Research    Researcher
	Planner     Planner
	Writer      Writer
	Voice       VoiceSynthesizer
	Transcriber Transcriber
	Blobs       BlobStore
	Renderer    Renderer
	Social      SocialCopywriter
	Images      ImageGenerator

	Cancels  CancelSignals
	Limiter  *StepLimiter
	Notifier FailureNotifier
}
