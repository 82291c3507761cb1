package worker

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/collab"
	"shorts_farm/internal/logger"
)

const tagPublish = "📤 [PUBLISH_WORKER]"

// MaxPostsPerTick số bài tối đa đăng trong một lượt
const MaxPostsPerTick = 20

// PostQueue hàng đợi bài đăng hẹn giờ
type PostQueue interface {
	// ClaimDue lấy một bài tới hạn và chuyển sang publishing; nil nếu không còn
	ClaimDue(ctx context.Context, now time.Time) (*models.ScheduledPost, error)
	MarkPublished(ctx context.Context, id primitive.ObjectID, mediaID string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, message string) error
}

// AccountReader đọc account để lấy credential
type AccountReader interface {
	GetAccount(ctx context.Context, id primitive.ObjectID) (*automodels.Account, error)
}

// ProjectReader đọc project để lấy tiêu đề
type ProjectReader interface {
	GetProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
}

// PublishedRecorder ghi media id đã đăng lên video
type PublishedRecorder interface {
	AppendPublished(ctx context.Context, id primitive.ObjectID, platform, mediaID string) error
}

// Publisher đăng video lên một nền tảng, trả về media id
type Publisher interface {
	Publish(ctx context.Context, cred automodels.PlatformCredential, req collab.PublishRequest) (string, error)
}

// PublishWorker đăng các ScheduledPost tới hạn
type PublishWorker struct {
	posts      PostQueue
	accounts   AccountReader
	projects   ProjectReader
	videos     PublishedRecorder
	publishers map[string]Publisher // theo platform
	interval   time.Duration
	now        func() time.Time
}

// NewPublishWorker tạo worker; interval dưới 10 giây dùng mặc định 1 phút
func NewPublishWorker(posts PostQueue, accounts AccountReader, projects ProjectReader, videos PublishedRecorder, publishers map[string]Publisher, interval time.Duration) *PublishWorker {
	if interval < 10*time.Second {
		interval = time.Minute
	}
	return &PublishWorker{
		posts:      posts,
		accounts:   accounts,
		projects:   projects,
		videos:     videos,
		publishers: publishers,
		interval:   interval,
		now:        time.Now,
	}
}

// Start chạy Tick mỗi interval
func (w *PublishWorker) Start(ctx context.Context) {
	log := logger.GetAppLogger()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	platforms := make([]string, 0, len(w.publishers))
	for p := range w.publishers {
		platforms = append(platforms, p)
	}
	log.WithFields(map[string]interface{}{
		"interval":  w.interval.String(),
		"platforms": platforms,
	}).Info(tagPublish + " Starting Publish Worker...")

	for {
		select {
		case <-ctx.Done():
			log.Info(tagPublish + " Publish Worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick đăng tối đa MaxPostsPerTick bài tới hạn, trả về số bài đã đăng thành công
func (w *PublishWorker) Tick(ctx context.Context) int {
	published := 0
	safeTick(ctx, tagPublish, func(ctx context.Context) {
		log := logger.GetAppLogger()
		for i := 0; i < MaxPostsPerTick; i++ {
			post, err := w.posts.ClaimDue(ctx, w.now())
			if err != nil {
				log.WithError(err).Error(tagPublish + " Lỗi lấy bài tới hạn")
				return
			}
			if post == nil {
				return
			}
			if w.publish(ctx, post) {
				published++
			}
		}
	})
	return published
}

func (w *PublishWorker) publish(ctx context.Context, post *models.ScheduledPost) bool {
	log := logger.GetAppLogger().WithFields(map[string]interface{}{
		"postId":    post.ID.Hex(),
		"projectId": post.ProjectID.Hex(),
		"platform":  post.Platform,
		"attempt":   post.Attempts,
	})
	fail := func(message string) bool {
		log.WithField("reason", message).Warn(tagPublish + " Đăng bài thất bại")
		if err := w.posts.MarkFailed(ctx, post.ID, message); err != nil {
			log.WithError(err).Error(tagPublish + " Không ghi được trạng thái failed")
		}
		return false
	}

	publisher, ok := w.publishers[post.Platform]
	if !ok {
		return fail(fmt.Sprintf("platform %s is not supported", post.Platform))
	}
	account, err := w.accounts.GetAccount(ctx, post.AccountID)
	if err != nil {
		return fail("account not found: " + err.Error())
	}
	cred, ok := credentialFor(account, post.Platform)
	if !ok {
		return fail(post.Platform + " credentials not found")
	}

	title := ""
	if p, err := w.projects.GetProject(ctx, post.ProjectID); err == nil {
		title = p.Topic
	}
	mediaID, err := publisher.Publish(ctx, cred, collab.PublishRequest{
		Title:    title,
		VideoURL: post.VideoURL,
		Caption:  post.Caption,
		CoverURL: post.CoverURL,
	})
	if err != nil {
		return fail(err.Error())
	}

	if err := w.videos.AppendPublished(ctx, post.VideoID, post.Platform, mediaID); err != nil {
		log.WithError(err).Warn(tagPublish + " Không ghi được media id lên video")
	}
	if err := w.posts.MarkPublished(ctx, post.ID, mediaID); err != nil {
		log.WithError(err).Error(tagPublish + " Không ghi được trạng thái published")
	}
	log.WithField("mediaId", mediaID).Info(tagPublish + " Đã đăng video")
	return true
}

func credentialFor(a *automodels.Account, platform string) (automodels.PlatformCredential, bool) {
	for _, c := range a.PublishablePlatforms() {
		if c.Platform == platform {
			return c, true
		}
	}
	return automodels.PlatformCredential{}, false
}
