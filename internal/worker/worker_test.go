package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/collab"
	"shorts_farm/internal/common"
	"shorts_farm/internal/pipeline"
	"shorts_farm/internal/scheduler"
)

// ====================================
// RENDER POLL
// ====================================

type fakeRendering struct {
	list []models.Project
}

func (f *fakeRendering) ListRendering(_ context.Context) ([]models.Project, error) {
	return f.list, nil
}

type fakeProgress struct {
	outcomes map[string]*pipeline.RenderOutcome
	errs     map[string]error
}

func (f *fakeProgress) Progress(_ context.Context, jobID, _ string) (*pipeline.RenderOutcome, error) {
	if err := f.errs[jobID]; err != nil {
		return nil, err
	}
	return f.outcomes[jobID], nil
}

type fakeReporter struct {
	jobs []string
}

func (f *fakeReporter) ReportRenderOutcome(_ context.Context, jobID string, _ pipeline.RenderOutcome) error {
	f.jobs = append(f.jobs, jobID)
	return nil
}

func TestRenderPollWorker_Tick(t *testing.T) {
	lister := &fakeRendering{list: []models.Project{
		{ID: primitive.NewObjectID(), RenderID: "done"},
		{ID: primitive.NewObjectID(), RenderID: "running"},
		{ID: primitive.NewObjectID(), RenderID: "broken"},
		{ID: primitive.NewObjectID()},
	}}
	progress := &fakeProgress{
		outcomes: map[string]*pipeline.RenderOutcome{
			"done": {Kind: pipeline.RenderSucceeded, OutputURL: "https://v/out.mp4"},
		},
		errs: map[string]error{"broken": errors.New("network")},
	}
	reporter := &fakeReporter{}
	w := NewRenderPollWorker(lister, progress, reporter, time.Minute)

	n := w.Tick(context.Background())
	assert.Equal(t, 1, n, "Chỉ job đã kết thúc được báo cáo")
	assert.Equal(t, []string{"done"}, reporter.jobs)
}

type panicLister struct{}

func (panicLister) ListRendering(_ context.Context) ([]models.Project, error) {
	panic("boom")
}

func TestRenderPollWorker_RecoversPanic(t *testing.T) {
	w := NewRenderPollWorker(panicLister{}, &fakeProgress{}, &fakeReporter{}, 0)
	assert.NotPanics(t, func() { w.Tick(context.Background()) }, "Panic trong một lượt không được làm chết worker")
	assert.Equal(t, 30*time.Second, w.interval, "Interval quá nhỏ dùng mặc định")
}

// ====================================
// DAILY SCHEDULER
// ====================================

type fakeRunner struct {
	calls int
}

func (f *fakeRunner) RunOnce(_ context.Context) ([]scheduler.AccountResult, error) {
	f.calls++
	return nil, nil
}

func TestDailySchedulerWorker(t *testing.T) {
	_, err := NewDailySchedulerWorker(&fakeRunner{}, "9h")
	assert.Error(t, err, "Giờ sai định dạng phải báo lỗi khi khởi tạo")

	runner := &fakeRunner{}
	w, err := NewDailySchedulerWorker(runner, "09:00")
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC), w.NextRun().UTC(), "Đã qua 09:00 thì chạy ngày hôm sau")

	w.Tick(context.Background())
	assert.Equal(t, 1, runner.calls)
}

// ====================================
// PUBLISH
// ====================================

type fakePosts struct {
	queue     []*models.ScheduledPost
	published map[primitive.ObjectID]string
	failed    map[primitive.ObjectID]string
}

func (f *fakePosts) ClaimDue(_ context.Context, _ time.Time) (*models.ScheduledPost, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	p := f.queue[0]
	f.queue = f.queue[1:]
	return p, nil
}

func (f *fakePosts) MarkPublished(_ context.Context, id primitive.ObjectID, mediaID string) error {
	f.published[id] = mediaID
	return nil
}

func (f *fakePosts) MarkFailed(_ context.Context, id primitive.ObjectID, message string) error {
	f.failed[id] = message
	return nil
}

type fakeAccountReader struct {
	account *automodels.Account
}

func (f *fakeAccountReader) GetAccount(_ context.Context, _ primitive.ObjectID) (*automodels.Account, error) {
	if f.account == nil {
		return nil, common.ErrNotFound
	}
	return f.account, nil
}

type fakeProjectReader struct{}

func (fakeProjectReader) GetProject(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	return &models.Project{ID: id, Topic: "Vì sao bầu trời xanh"}, nil
}

type fakeVideos struct {
	appended []string
}

func (f *fakeVideos) AppendPublished(_ context.Context, _ primitive.ObjectID, platform, mediaID string) error {
	f.appended = append(f.appended, platform+":"+mediaID)
	return nil
}

type fakePublisher struct {
	requests []collab.PublishRequest
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, _ automodels.PlatformCredential, req collab.PublishRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "media-1", nil
}

func TestPublishWorker_Tick(t *testing.T) {
	ok := &models.ScheduledPost{ID: primitive.NewObjectID(), Platform: automodels.PlatformInstagram, VideoURL: "https://v.mp4", Caption: "cap"}
	noCred := &models.ScheduledPost{ID: primitive.NewObjectID(), Platform: automodels.PlatformYouTube}
	unknown := &models.ScheduledPost{ID: primitive.NewObjectID(), Platform: "tiktok"}
	posts := &fakePosts{
		queue:     []*models.ScheduledPost{ok, noCred, unknown},
		published: map[primitive.ObjectID]string{},
		failed:    map[primitive.ObjectID]string{},
	}
	accounts := &fakeAccountReader{account: &automodels.Account{Platforms: []automodels.PlatformCredential{
		{Platform: automodels.PlatformInstagram, UserID: "ig", AccessToken: "tok"},
		{Platform: automodels.PlatformYouTube},
	}}}
	videos := &fakeVideos{}
	ig := &fakePublisher{}
	yt := &fakePublisher{}
	w := NewPublishWorker(posts, accounts, fakeProjectReader{}, videos, map[string]Publisher{
		automodels.PlatformInstagram: ig,
		automodels.PlatformYouTube:   yt,
	}, time.Minute)

	n := w.Tick(context.Background())
	assert.Equal(t, 1, n)
	assert.Equal(t, "media-1", posts.published[ok.ID])
	assert.Equal(t, []string{"instagram:media-1"}, videos.appended, "Media id phải được ghi lên video")
	require.Len(t, ig.requests, 1)
	assert.Equal(t, "Vì sao bầu trời xanh", ig.requests[0].Title, "Tiêu đề lấy từ topic của project")
	assert.Equal(t, "youtube credentials not found", posts.failed[noCred.ID])
	assert.Contains(t, posts.failed[unknown.ID], "not supported")
	assert.Empty(t, yt.requests)
}

func TestPublishWorker_PublisherError(t *testing.T) {
	post := &models.ScheduledPost{ID: primitive.NewObjectID(), Platform: automodels.PlatformInstagram}
	posts := &fakePosts{queue: []*models.ScheduledPost{post}, published: map[primitive.ObjectID]string{}, failed: map[primitive.ObjectID]string{}}
	accounts := &fakeAccountReader{account: &automodels.Account{Platforms: []automodels.PlatformCredential{
		{Platform: automodels.PlatformInstagram, UserID: "ig", AccessToken: "tok"},
	}}}
	w := NewPublishWorker(posts, accounts, fakeProjectReader{}, &fakeVideos{}, map[string]Publisher{
		automodels.PlatformInstagram: &fakePublisher{err: errors.New("instagram reel upload timed out")},
	}, time.Minute)

	assert.Equal(t, 0, w.Tick(context.Background()))
	assert.Equal(t, "instagram reel upload timed out", posts.failed[post.ID])
	assert.Empty(t, posts.published)
}
