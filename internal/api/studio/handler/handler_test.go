package studiohdl

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basemodels "shorts_farm/internal/api/base/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/pipeline"
)

type fakeProjects struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.Project
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{items: map[primitive.ObjectID]*models.Project{}}
}

func (f *fakeProjects) CreateProject(_ context.Context, p *models.Project) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	cp.ID = primitive.NewObjectID()
	f.items[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeProjects) GetProject(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) RecordFailure(_ context.Context, id primitive.ObjectID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return common.ErrNotFound
	}
	p.Status = models.ProjectStatusError
	p.StatusMessage = message
	return nil
}

func (f *fakeProjects) ListByUser(_ context.Context, userID primitive.ObjectID, page, limit int64) (*basemodels.PaginateResult[models.Project], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []models.Project
	for _, p := range f.items {
		if p.UserID == userID {
			items = append(items, *p)
		}
	}
	return &basemodels.PaginateResult[models.Project]{Page: page, Limit: limit, Items: items, ItemCount: int64(len(items)), Total: int64(len(items))}, nil
}

type fakeScripts struct {
	script *models.Script
}

func (f *fakeScripts) FindScriptByProject(_ context.Context, _ primitive.ObjectID) (*models.Script, error) {
	if f.script == nil {
		return nil, common.ErrNotFound
	}
	return f.script, nil
}

type fakeCredits struct {
	left     int
	refunded int
}

func (f *fakeCredits) GetCredits(_ context.Context, userID primitive.ObjectID) (*models.UserCredit, error) {
	return &models.UserCredit{UserID: userID, TokensLeft: f.left}, nil
}

func (f *fakeCredits) ConsumeCredit(_ context.Context, _ primitive.ObjectID) error {
	if f.left <= 0 {
		return common.ErrInsufficientCredits
	}
	f.left--
	return nil
}

func (f *fakeCredits) RefundCredit(_ context.Context, _ primitive.ObjectID) error {
	f.left++
	f.refunded++
	return nil
}

type fakePosts struct {
	items []models.ScheduledPost
}

func (f *fakePosts) ListByProject(_ context.Context, projectID primitive.ObjectID) ([]models.ScheduledPost, error) {
	var out []models.ScheduledPost
	for _, p := range f.items {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeRuns struct {
	startErr  error
	started   []primitive.ObjectID
	reported  []pipeline.RenderOutcome
	reportErr error
}

func (f *fakeRuns) Start(_ context.Context, id primitive.ObjectID) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}
	f.started = append(f.started, id)
	return "run-1", nil
}

func (f *fakeRuns) Rerun(_ context.Context, _ primitive.ObjectID) (string, error) {
	return "run-2", nil
}

func (f *fakeRuns) RerunFromScratch(_ context.Context, _ primitive.ObjectID) (string, error) {
	return "run-3", nil
}

func (f *fakeRuns) Rerender(_ context.Context, _ primitive.ObjectID) (string, error) {
	return "", common.ErrMissingArtifact
}

func (f *fakeRuns) Cancel(_ context.Context, _ primitive.ObjectID) error {
	return nil
}

func (f *fakeRuns) ReportRenderOutcome(_ context.Context, _ string, outcome pipeline.RenderOutcome) error {
	f.reported = append(f.reported, outcome)
	return f.reportErr
}

func (f *fakeRuns) FPS() int { return 30 }

type fixture struct {
	app      *fiber.App
	projects *fakeProjects
	scripts  *fakeScripts
	credits  *fakeCredits
	posts    *fakePosts
	runs     *fakeRuns
	userID   primitive.ObjectID
}

const webhookSecret = "webhook-secret"

func newFixture() *fixture {
	f := &fixture{
		projects: newFakeProjects(),
		scripts:  &fakeScripts{},
		credits:  &fakeCredits{left: 10},
		posts:    &fakePosts{},
		runs:     &fakeRuns{},
		userID:   primitive.NewObjectID(),
	}
	h := NewProjectHandler(f.projects, f.scripts, f.credits, f.posts, f.runs)
	wh := NewRenderWebhookHandler(f.runs, webhookSecret)

	f.app = fiber.New()
	authed := f.app.Group("/projects")
	authed.Use(func(c fiber.Ctx) error {
		c.Locals("user_id", f.userID.Hex())
		return c.Next()
	})
	authed.Post("", h.HandleCreateProject)
	authed.Get("/:id", h.HandleGetProject)
	authed.Post("/:id/rerender", h.HandleRerender)
	authed.Post("/:id/rerun", h.HandleRerun)
	authed.Get("/:id/captions", h.HandleCaptions)
	authed.Get("/:id/posts", h.HandleListPosts)
	credits := f.app.Group("/credits")
	credits.Use(func(c fiber.Ctx) error {
		c.Locals("user_id", f.userID.Hex())
		return c.Next()
	})
	credits.Get("", h.HandleCredits)
	f.app.Post("/render/webhook", wh.HandleRenderWebhook)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func TestCreateProject_DefaultTopicFromURL(t *testing.T) {
	f := newFixture()
	castID := primitive.NewObjectID().Hex()

	status, body := f.do(t, "POST", "/projects", `{"urls":["https://example.com/a"],"castId":"`+castID+`"}`, nil)
	require.Equal(t, 202, status, body)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Video for https://example.com/a", data["topic"], "Topic mặc định lấy từ url đầu tiên")
	assert.Equal(t, "gathering", data["status"])
	assert.Equal(t, "run-1", data["workflowRunId"])
	assert.Equal(t, 9, f.credits.left, "User mới còn 9 lượt sau video đầu tiên")
	assert.Len(t, f.runs.started, 1, "Pipeline phải được khởi động")
}

func TestCreateProject_MissingSeed(t *testing.T) {
	f := newFixture()
	status, _ := f.do(t, "POST", "/projects", `{"castId":"`+primitive.NewObjectID().Hex()+`"}`, nil)
	assert.Equal(t, 400, status, "Thiếu cả topic và urls phải bị từ chối")
	assert.Equal(t, 10, f.credits.left, "Không trừ lượt khi input sai")
}

func TestCreateProject_NoCredits(t *testing.T) {
	f := newFixture()
	f.credits.left = 0
	status, body := f.do(t, "POST", "/projects", `{"topic":"Cá voi","castId":"`+primitive.NewObjectID().Hex()+`"}`, nil)
	assert.Equal(t, 402, status)
	assert.Equal(t, common.ErrInsufficientCredits.Error(), body["message"])
	assert.Empty(t, f.projects.items, "Không tạo project khi hết lượt")
}

func TestCreateProject_StartFailureRefunds(t *testing.T) {
	f := newFixture()
	f.runs.startErr = common.ErrRunActive
	status, _ := f.do(t, "POST", "/projects", `{"topic":"Cá voi","castId":"`+primitive.NewObjectID().Hex()+`"}`, nil)
	assert.Equal(t, 409, status)
	assert.Equal(t, 1, f.credits.refunded, "Phải hoàn lượt khi không khởi động được run")
	assert.Equal(t, 10, f.credits.left)

	require.Len(t, f.projects.items, 1)
	for _, p := range f.projects.items {
		assert.Equal(t, models.ProjectStatusError, p.Status, "Project không có run phải chuyển sang error")
		assert.Contains(t, p.StatusMessage, "Failed to start workflow")
	}
}

func TestGetProject_OtherUserIsNotFound(t *testing.T) {
	f := newFixture()
	p, _ := f.projects.CreateProject(context.Background(), &models.Project{Topic: "x", UserID: primitive.NewObjectID()})

	status, _ := f.do(t, "GET", "/projects/"+p.ID.Hex(), "", nil)
	assert.Equal(t, 404, status, "Project của user khác coi như không tồn tại")

	status, _ = f.do(t, "GET", "/projects/not-an-id", "", nil)
	assert.Equal(t, 400, status)
}

func TestControlActions(t *testing.T) {
	f := newFixture()
	p, _ := f.projects.CreateProject(context.Background(), &models.Project{Topic: "x", UserID: f.userID})

	status, body := f.do(t, "POST", "/projects/"+p.ID.Hex()+"/rerun", "", nil)
	require.Equal(t, 202, status)
	assert.Equal(t, "run-2", body["data"].(map[string]interface{})["runId"])

	status, _ = f.do(t, "POST", "/projects/"+p.ID.Hex()+"/rerender", "", nil)
	assert.Equal(t, 422, status, "Rerender thiếu script đã có voice")
}

func TestCaptionsPreview(t *testing.T) {
	f := newFixture()
	p, _ := f.projects.CreateProject(context.Background(), &models.Project{Topic: "x", UserID: f.userID})

	status, _ := f.do(t, "GET", "/projects/"+p.ID.Hex()+"/captions?frame=0", "", nil)
	assert.Equal(t, 422, status, "Chưa có script")

	f.scripts.script = &models.Script{ProjectID: p.ID, Captions: []models.Caption{
		{Text: "Xin", StartMs: 0, EndMs: 300, TimestampMs: 0},
		{Text: " chào", StartMs: 300, EndMs: 700, TimestampMs: 300},
	}}
	status, body := f.do(t, "GET", "/projects/"+p.ID.Hex()+"/captions?frame=15", "", nil)
	require.Equal(t, 200, status, body)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 15, data["frame"])
	assert.NotNil(t, data["display"], "Frame 15 (500ms) phải có phụ đề")

	status, _ = f.do(t, "GET", "/projects/"+p.ID.Hex()+"/captions?frame=-1", "", nil)
	assert.Equal(t, 400, status)
}

func TestRenderWebhook(t *testing.T) {
	f := newFixture()
	body := `{"type":"success","renderId":"r1","outputUrl":"https://a/url.mp4","outputFile":"https://a/file.mp4"}`

	status, _ := f.do(t, "POST", "/render/webhook", body, map[string]string{SignatureHeader: "sha512=deadbeef"})
	assert.Equal(t, 401, status, "Sai chữ ký")
	assert.Empty(t, f.runs.reported)

	sig := SignBody(webhookSecret, []byte(body))
	status, _ = f.do(t, "POST", "/render/webhook", body, map[string]string{SignatureHeader: sig})
	require.Equal(t, 200, status)
	require.Len(t, f.runs.reported, 1)
	assert.Equal(t, pipeline.RenderSucceeded, f.runs.reported[0].Kind)
	assert.Equal(t, "https://a/file.mp4", f.runs.reported[0].OutputURL, "outputFile được ưu tiên")

	f.runs.reportErr = common.ErrUnknownRenderJob
	status, _ = f.do(t, "POST", "/render/webhook", body, map[string]string{SignatureHeader: sig})
	assert.Equal(t, 200, status, "Job không rõ vẫn được xác nhận")
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"a":1}`)
	assert.True(t, VerifySignature("s", body, SignBody("s", body)))
	assert.False(t, VerifySignature("s", body, SignBody("khac", body)))
	assert.False(t, VerifySignature("s", body, ""))
}

func TestCreditsAndPosts(t *testing.T) {
	f := newFixture()
	p, _ := f.projects.CreateProject(context.Background(), &models.Project{Topic: "x", UserID: f.userID})
	f.posts.items = []models.ScheduledPost{
		{ID: primitive.NewObjectID(), ProjectID: p.ID, Platform: "instagram"},
		{ID: primitive.NewObjectID(), ProjectID: primitive.NewObjectID(), Platform: "youtube"},
	}

	status, body := f.do(t, "GET", "/credits", "", nil)
	require.Equal(t, 200, status, body)
	assert.EqualValues(t, 10, body["data"].(map[string]interface{})["tokensLeft"])

	status, body = f.do(t, "GET", "/projects/"+p.ID.Hex()+"/posts", "", nil)
	require.Equal(t, 200, status, body)
	assert.Len(t, body["data"], 1, "Chỉ trả bài đăng của project này")
}
