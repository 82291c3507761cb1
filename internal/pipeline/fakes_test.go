package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
)

// memStore cài đặt các store của pipeline trong bộ nhớ
type memStore struct {
	mu         sync.Mutex
	projects   map[primitive.ObjectID]*models.Project
	scripts    map[primitive.ObjectID]*models.Script
	videos     map[primitive.ObjectID]*models.Video
	casts      map[primitive.ObjectID]*models.Cast
	characters []models.Character
	assets     []models.Asset
	accounts   map[primitive.ObjectID]*automodels.Account
	posts      []models.ScheduledPost

	// beforeCreateVideo chạy trước khi lưu video, dùng để mô phỏng báo cáo render đồng thời
	beforeCreateVideo func()
}

func newMemStore() *memStore {
	return &memStore{
		projects: make(map[primitive.ObjectID]*models.Project),
		scripts:  make(map[primitive.ObjectID]*models.Script),
		videos:   make(map[primitive.ObjectID]*models.Video),
		casts:    make(map[primitive.ObjectID]*models.Cast),
		accounts: make(map[primitive.ObjectID]*automodels.Account),
	}
}

func (m *memStore) project(id primitive.ObjectID) *models.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.projects[id]
	return &cp
}

func (m *memStore) account(id primitive.ObjectID) *automodels.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.accounts[id]
	cp.TopicQueue = append([]string(nil), cp.TopicQueue...)
	return &cp
}

// ===== ProjectStore =====

func (m *memStore) GetProject(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) FindProjectByRenderID(_ context.Context, renderID string) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.projects {
		if renderID != "" && p.RenderID == renderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memStore) mutate(id primitive.ObjectID, fn func(p *models.Project) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return common.ErrNotFound
	}
	return fn(p)
}

func (m *memStore) SetWorkflowRunID(_ context.Context, id primitive.ObjectID, runID string) error {
	return m.mutate(id, func(p *models.Project) error { p.WorkflowRunID = runID; return nil })
}

func (m *memStore) AdvanceStage(_ context.Context, id primitive.ObjectID, from, to models.ProjectStatus) error {
	return m.mutate(id, func(p *models.Project) error {
		if p.Status != from || !CanAdvance(from, to) {
			return common.ErrInvalidState
		}
		p.Status = to
		return nil
	})
}

func (m *memStore) RecordFailure(_ context.Context, id primitive.ObjectID, message string) error {
	return m.mutate(id, func(p *models.Project) error {
		p.Status = models.ProjectStatusError
		p.StatusMessage = message
		return nil
	})
}

func (m *memStore) AttachPlan(_ context.Context, id primitive.ObjectID, plan []models.PlanScene) error {
	return m.mutate(id, func(p *models.Project) error {
		if p.Status != models.ProjectStatusPlanning {
			return common.ErrInvalidState
		}
		p.Plan = plan
		p.Status = models.ProjectStatusWriting
		return nil
	})
}

func (m *memStore) AttachScript(_ context.Context, id primitive.ObjectID, scriptID primitive.ObjectID) error {
	return m.mutate(id, func(p *models.Project) error {
		if p.Status != models.ProjectStatusWriting {
			return common.ErrInvalidState
		}
		p.ScriptID = &scriptID
		p.Status = models.ProjectStatusGeneratingVoices
		return nil
	})
}

func (m *memStore) AttachRender(_ context.Context, id primitive.ObjectID, renderID, bucket string) error {
	return m.mutate(id, func(p *models.Project) error {
		p.RenderID = renderID
		p.BucketName = bucket
		return nil
	})
}

func (m *memStore) AttachVideo(_ context.Context, id primitive.ObjectID, renderID string, videoID primitive.ObjectID) error {
	return m.mutate(id, func(p *models.Project) error {
		if p.Status != models.ProjectStatusRendering || p.RenderID != renderID {
			return common.ErrInvalidState
		}
		p.VideoID = &videoID
		p.Status = models.ProjectStatusDone
		p.StatusMessage = ""
		return nil
	})
}

func (m *memStore) ResetForRerun(_ context.Context, id primitive.ObjectID, r models.ProjectReset) error {
	return m.mutate(id, func(p *models.Project) error {
		p.Status = r.Status
		p.StatusMessage = r.StatusMessage
		if r.ClearPlan {
			p.Plan = nil
		}
		if r.ClearScript {
			p.ScriptID = nil
		}
		if r.ClearVideo {
			p.VideoID = nil
		}
		if r.ClearRender {
			p.RenderID = ""
			p.BucketName = ""
		}
		if r.ClearSocials {
			p.Socials = nil
		}
		return nil
	})
}

func (m *memStore) SaveSocials(_ context.Context, id primitive.ObjectID, socials models.Socials) error {
	return m.mutate(id, func(p *models.Project) error { p.Socials = &socials; p.SocialError = ""; return nil })
}

func (m *memStore) RecordSocialError(_ context.Context, id primitive.ObjectID, message string) error {
	return m.mutate(id, func(p *models.Project) error { p.SocialError = message; return nil })
}

func (m *memStore) MarkTopicConsumed(_ context.Context, id primitive.ObjectID) (bool, error) {
	changed := false
	err := m.mutate(id, func(p *models.Project) error {
		changed = !p.TopicConsumed
		p.TopicConsumed = true
		return nil
	})
	return changed, err
}

// ===== ScriptStore =====

func cloneScript(s *models.Script) *models.Script {
	cp := *s
	cp.Scenes = make([]models.Scene, len(s.Scenes))
	for i, sc := range s.Scenes {
		cp.Scenes[i] = sc
		cp.Scenes[i].Dialogues = append([]models.DialogueTurn(nil), sc.Dialogues...)
	}
	cp.Captions = append([]models.Caption(nil), s.Captions...)
	return &cp
}

func (m *memStore) CreateScript(_ context.Context, s *models.Script) (*models.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = primitive.NewObjectID()
	m.scripts[s.ID] = cloneScript(s)
	return cloneScript(s), nil
}

func (m *memStore) GetScript(_ context.Context, id primitive.ObjectID) (*models.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scripts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneScript(s), nil
}

func (m *memStore) FindScriptByProject(_ context.Context, projectID primitive.ObjectID) (*models.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scripts {
		if s.ProjectID == projectID {
			return cloneScript(s), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memStore) AttachTurnAudio(_ context.Context, scriptID primitive.ObjectID, si, ti int, audio models.TurnAudio) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scripts[scriptID]
	if !ok {
		return common.ErrNotFound
	}
	d := &s.Scenes[si].Dialogues[ti]
	dur := audio.DurationSeconds
	d.VoiceURL = audio.VoiceURL
	d.AudioDurationSeconds = &dur
	d.WordCaptions = audio.WordCaptions
	return nil
}

func (m *memStore) AttachCaptions(_ context.Context, scriptID primitive.ObjectID, captions []models.Caption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scripts[scriptID]
	if !ok {
		return common.ErrNotFound
	}
	s.Captions = captions
	return nil
}

func (m *memStore) DeleteScriptsByProject(_ context.Context, projectID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.scripts {
		if s.ProjectID == projectID {
			delete(m.scripts, id)
		}
	}
	return nil
}

func (m *memStore) scriptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scripts)
}

// ===== VideoStore =====

func (m *memStore) CreateVideo(_ context.Context, v *models.Video) (*models.Video, error) {
	if hook := m.beforeCreateVideo; hook != nil {
		m.beforeCreateVideo = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v.ID = primitive.NewObjectID()
	cp := *v
	m.videos[v.ID] = &cp
	return v, nil
}

func (m *memStore) GetVideo(_ context.Context, id primitive.ObjectID) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) DeleteVideo(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.videos, id)
	return nil
}

// ===== CastStore / AssetStore =====

func (m *memStore) GetCast(_ context.Context, id primitive.ObjectID) (*models.Cast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.casts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) ListCharacters(_ context.Context, castID primitive.ObjectID) ([]models.Character, error) {
	var out []models.Character
	for _, c := range m.characters {
		if c.CastID == castID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListCharacterAssets(_ context.Context, ids []primitive.ObjectID) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range m.assets {
		if a.Type != models.AssetTypeCharacter || a.CharacterID == nil {
			continue
		}
		for _, id := range ids {
			if *a.CharacterID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (m *memStore) ListBackgrounds(_ context.Context) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range m.assets {
		if a.Type == models.AssetTypeBackground {
			out = append(out, a)
		}
	}
	return out, nil
}

// ===== AccountStore / PostScheduler =====

func (m *memStore) GetAccount(_ context.Context, id primitive.ObjectID) (*automodels.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) PopTopicIfHead(_ context.Context, id primitive.ObjectID, topic string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return false, common.ErrNotFound
	}
	if len(a.TopicQueue) == 0 || a.TopicQueue[0] != topic {
		return false, nil
	}
	a.TopicQueue = a.TopicQueue[1:]
	return true, nil
}

func (m *memStore) SchedulePost(_ context.Context, post *models.ScheduledPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = primitive.NewObjectID()
	m.posts = append(m.posts, *post)
	return nil
}

// ====================================
// FAKE COLLABORATORS
// ====================================

type fakeResearch struct {
	calls  atomic.Int32
	err    error
	before func()
}

func (f *fakeResearch) Research(_ context.Context, req ResearchRequest) (*ResearchResult, error) {
	f.calls.Add(1)
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &ResearchResult{RawText: "research about " + req.Topic, ImageURLs: []string{"https://img/1.png"}}, nil
}

type fakePlanner struct {
	calls  atomic.Int32
	scenes []PlannedScene
}

func (f *fakePlanner) Plan(_ context.Context, _ PlanRequest) ([]PlannedScene, error) {
	f.calls.Add(1)
	return f.scenes, nil
}

type fakeWriter struct {
	calls  atomic.Int32
	scenes []WrittenScene
}

func (f *fakeWriter) Write(_ context.Context, _ WriteRequest) ([]WrittenScene, error) {
	f.calls.Add(1)
	return f.scenes, nil
}

type fakeVoice struct {
	calls  atomic.Int32
	before func()
	err    error
}

func (f *fakeVoice) Synthesize(_ context.Context, text, _ string) ([]byte, error) {
	if f.calls.Add(1) == 1 && f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(text), nil
}

// fakeTranscriber: mỗi từ 200ms, thời lượng = số từ * 0.2s
type fakeTranscriber struct{}

func (fakeTranscriber) Transcribe(_ context.Context, audio []byte) (*Transcription, error) {
	words := strings.Fields(string(audio))
	out := &Transcription{DurationSeconds: float64(len(words)) * 0.2}
	for i, w := range words {
		start := int64(i * 200)
		out.Captions = append(out.Captions, models.Caption{Text: w, StartMs: start, EndMs: start + 200, TimestampMs: start})
	}
	return out, nil
}

type fakeBlobs struct{ puts atomic.Int32 }

func (f *fakeBlobs) Put(_ context.Context, name, _ string, _ []byte) (string, error) {
	f.puts.Add(1)
	return "https://blobs.test/" + name, nil
}

type fakeRenderer struct {
	calls atomic.Int32
	last  RenderRequest
	mu    sync.Mutex
}

func (f *fakeRenderer) Submit(_ context.Context, req RenderRequest) (*RenderJob, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	return &RenderJob{JobID: fmt.Sprintf("render-%d", n), Bucket: "bucket"}, nil
}

type fakeSocial struct{}

func (fakeSocial) ThumbnailPrompt(_ context.Context, req SocialRequest) (string, error) {
	return "thumbnail for " + req.Topic, nil
}

func (fakeSocial) SocialCopy(_ context.Context, req SocialRequest) (string, error) {
	return "watch " + req.Topic, nil
}

type fakeImages struct{ err error }

func (f fakeImages) Generate(_ context.Context, _ string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png"), nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, _ *models.Project, _ *automodels.Account, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

// ====================================
// FIXTURE
// ====================================

type fixture struct {
	store    *memStore
	research *fakeResearch
	planner  *fakePlanner
	writer   *fakeWriter
	voice    *fakeVoice
	blobs    *fakeBlobs
	renderer *fakeRenderer
	notifier *fakeNotifier
	deps     Deps
	orch     *Orchestrator

	castID  primitive.ObjectID
	aliceID primitive.ObjectID
	bobID   primitive.ObjectID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		research: &fakeResearch{},
		voice:    &fakeVoice{},
		blobs:    &fakeBlobs{},
		renderer: &fakeRenderer{},
		notifier: &fakeNotifier{},
		castID:   primitive.NewObjectID(),
		aliceID:  primitive.NewObjectID(),
		bobID:    primitive.NewObjectID(),
	}
	f.store.casts[f.castID] = &models.Cast{ID: f.castID, Name: "Duo", Dynamics: "friendly banter"}
	f.store.characters = []models.Character{
		{ID: f.aliceID, CastID: f.castID, Name: "Alice", VoiceID: "voice-alice"},
		{ID: f.bobID, CastID: f.castID, Name: "Bob", VoiceID: "voice-bob"},
	}
	aliceID := f.aliceID
	f.store.assets = []models.Asset{
		{ID: primitive.NewObjectID(), Type: models.AssetTypeCharacter, Name: "happy", URL: "https://assets/alice-happy.png", CharacterID: &aliceID},
		{ID: primitive.NewObjectID(), Type: models.AssetTypeBackground, Name: "city", URL: "https://assets/city.mp4"},
	}
	f.planner = &fakePlanner{scenes: []PlannedScene{
		{SceneNumber: 2, DialoguePlan: []PlannedLine{{Character: "Bob", LineDescription: "answer"}}},
		{SceneNumber: 1, DialoguePlan: []PlannedLine{{Character: "alice", LineDescription: "ask"}}},
	}}
	f.writer = &fakeWriter{scenes: []WrittenScene{
		{SceneNumber: 1, Dialogues: []WrittenLine{{Character: "Alice", Line: "Why is the sky blue", Expression: "happy"}}},
		{SceneNumber: 2, Dialogues: []WrittenLine{{Character: "Bob", Line: "Rayleigh scattering my friend", Expression: "smart"}}},
	}}
	f.deps = Deps{
		Projects:    f.store,
		Scripts:     f.store,
		Videos:      f.store,
		Casts:       f.store,
		Assets:      f.store,
		Accounts:    f.store,
		Posts:       f.store,
		Research:    f.research,
		Planner:     f.planner,
		Writer:      f.writer,
		Voice:       f.voice,
		Transcriber: fakeTranscriber{},
		Blobs:       f.blobs,
		Renderer:    f.renderer,
		Social:      fakeSocial{},
		Images:      fakeImages{},
		Notifier:    f.notifier,
		Limiter:     NewStepLimiter(2),
	}
	f.rebuild(t)
	return f
}

// rebuild tạo lại orchestrator sau khi test thay đổi deps
func (f *fixture) rebuild(t *testing.T) {
	t.Helper()
	orch, err := NewOrchestrator(f.deps, Config{FPS: 30})
	require.NoError(t, err)
	f.orch = orch
}

func (f *fixture) addProject(p *models.Project) primitive.ObjectID {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CastID.IsZero() {
		p.CastID = f.castID
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusGathering
	}
	f.store.mu.Lock()
	f.store.projects[p.ID] = p
	f.store.mu.Unlock()
	return p.ID
}

func (f *fixture) samplePlan() []models.PlanScene {
	return []models.PlanScene{
		{SceneNumber: 1, DialoguePlan: []models.PlanDialogue{{CharacterID: f.aliceID, LineDescription: "ask"}}},
		{SceneNumber: 2, DialoguePlan: []models.PlanDialogue{{CharacterID: f.bobID, LineDescription: "answer"}}},
	}
}

var errBoom = errors.New("boom")
