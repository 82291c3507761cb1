// Package scheduler chạy định kỳ cho các automation account: bổ sung hàng đợi topic, chọn cast theo
// trọng số, tạo project từ topic đầu hàng đợi và khởi động pipeline.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	automodels "shorts_farm/internal/api/automation/models"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/pipeline"
)

const (
	// RefillThreshold hàng đợi ngắn hơn ngưỡng này thì sinh thêm topic
	RefillThreshold = 5
	// IdeasPerRefill số ý tưởng sinh ra mỗi lần, chọn 1 ý tốt nhất
	IdeasPerRefill = 5
	// RecentTopicLimit số topic gần nhất gửi kèm để tránh trùng
	RecentTopicLimit = 25
)

// AccountSource các thao tác trên automation account mà scheduler cần
type AccountSource interface {
	ListEnabledAccounts(ctx context.Context) ([]automodels.Account, error)
	AppendTopic(ctx context.Context, id primitive.ObjectID, topic string) error
}

// ProjectSource tạo project và kiểm tra project đang chạy của account
type ProjectSource interface {
	CreateProject(ctx context.Context, p *models.Project) (*models.Project, error)
	RecordFailure(ctx context.Context, id primitive.ObjectID, message string) error
	HasActiveProjectForAccount(ctx context.Context, accountID primitive.ObjectID) (bool, error)
	RecentTopicsByAccount(ctx context.Context, accountID primitive.ObjectID, limit int) ([]string, error)
}

// CreditStore lượt tạo video của user
type CreditStore interface {
	// ConsumeCredit trừ 1 lượt, trả về common.ErrInsufficientCredits khi đã hết
	ConsumeCredit(ctx context.Context, userID primitive.ObjectID) error
	RefundCredit(ctx context.Context, userID primitive.ObjectID) error
}

// TopicBrief thông tin account gửi cho bộ sinh topic
type TopicBrief struct {
	DisplayName   string
	Bio           string
	CreativeBrief string
	RecentTopics  []string
	Count         int
}

// TopicGenerator sinh ý tưởng rồi chọn ý tốt nhất
type TopicGenerator interface {
	Ideate(ctx context.Context, brief TopicBrief) ([]string, error)
	SelectBest(ctx context.Context, brief TopicBrief, ideas []string) (string, error)
}

// RunStarter khởi động pipeline cho project (pipeline.Orchestrator)
type RunStarter interface {
	Start(ctx context.Context, projectID primitive.ObjectID) (string, error)
}

// Deps phụ thuộc của scheduler
type Deps struct {
	Accounts AccountSource
	Projects ProjectSource
	Credits  CreditStore
	Topics   TopicGenerator // nil thì không tự bổ sung hàng đợi
	Runner   RunStarter
	Limiter  *pipeline.StepLimiter
}

// AccountResult kết quả xử lý một account trong một lượt chạy
type AccountResult struct {
	AccountID primitive.ObjectID  `json:"accountId"`
	ProjectID *primitive.ObjectID `json:"projectId,omitempty"`
	RunID     string              `json:"runId,omitempty"`
	Topic     string              `json:"topic,omitempty"`
	Skipped   string              `json:"skipped,omitempty"` // Lý do bỏ qua, rỗng nếu đã tạo project
}

// Scheduler xem package doc
type Scheduler struct {
	deps Deps

	// Mỗi lượt RunOnce chạy tuần tự, tránh hai lượt chồng nhau tiêu thụ cùng đầu hàng đợi
	runMu sync.Mutex

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewScheduler tạo scheduler
func NewScheduler(deps Deps) (*Scheduler, error) {
	if deps.Accounts == nil || deps.Projects == nil || deps.Credits == nil || deps.Runner == nil {
		return nil, fmt.Errorf("scheduler dependencies are required: %w", common.ErrRequiredField)
	}
	if deps.Limiter == nil {
		deps.Limiter = pipeline.NewStepLimiter(pipeline.DefaultParallelism)
	}
	return &Scheduler{
		deps: deps,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// SetRandSource thay nguồn ngẫu nhiên, dùng trong test
func (s *Scheduler) SetRandSource(src rand.Source) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng = rand.New(src)
}

func (s *Scheduler) pickCast(weights []automodels.CastWeight) (primitive.ObjectID, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return PickWeighted(weights, s.rng)
}

// RunOnce một lượt chạy cho toàn bộ account đang bật. Lỗi của từng account được log và bỏ qua.
func (s *Scheduler) RunOnce(ctx context.Context) ([]AccountResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log := logger.GetAppLogger()
	accounts, err := s.deps.Accounts.ListEnabledAccounts(ctx)
	if err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"accounts": len(accounts),
	}).Info("⏰ [SCHEDULER] Bắt đầu lượt chạy")

	s.refillAll(ctx, accounts)

	results := make([]AccountResult, 0, len(accounts))
	for i := range accounts {
		acc := &accounts[i]
		res, err := s.processAccount(ctx, acc)
		if err != nil {
			log.WithFields(map[string]interface{}{
				"accountId": acc.ID.Hex(),
			}).WithError(err).Error("⏰ [SCHEDULER] Lỗi xử lý account, bỏ qua")
			res = AccountResult{AccountID: acc.ID, Skipped: err.Error()}
		}
		results = append(results, res)
	}
	return results, nil
}

// refillAll bổ sung hàng đợi cho các account song song; không đụng tới đầu hàng đợi
func (s *Scheduler) refillAll(ctx context.Context, accounts []automodels.Account) {
	if s.deps.Topics == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Limiter.Size())
	for i := range accounts {
		acc := &accounts[i]
		if len(acc.TopicQueue) >= RefillThreshold {
			continue
		}
		g.Go(func() error {
			if err := s.refill(gctx, acc); err != nil {
				logger.GetAppLogger().WithFields(map[string]interface{}{
					"accountId": acc.ID.Hex(),
				}).WithError(err).Warn("📋 [QUEUE] Bổ sung topic thất bại")
			}
			// Lỗi một account không hủy các account khác
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Scheduler) refill(ctx context.Context, acc *automodels.Account) error {
	recent, err := s.deps.Projects.RecentTopicsByAccount(ctx, acc.ID, RecentTopicLimit)
	if err != nil {
		return err
	}
	brief := TopicBrief{
		DisplayName:   acc.DisplayName,
		Bio:           acc.Bio,
		CreativeBrief: acc.CreativeBrief,
		RecentTopics:  recent,
		Count:         IdeasPerRefill,
	}

	var best string
	err = s.deps.Limiter.Do(ctx, func(ctx context.Context) error {
		ideas, err := s.deps.Topics.Ideate(ctx, brief)
		if err != nil {
			return err
		}
		if len(ideas) == 0 {
			return errors.New("topic generator returned no ideas")
		}
		best, err = s.deps.Topics.SelectBest(ctx, brief, ideas)
		return err
	})
	if err != nil {
		return common.CollaboratorError(fmt.Sprintf("Topic generation failed: %v", err), err)
	}
	best = strings.TrimSpace(best)
	if best == "" {
		return nil
	}
	if err := s.deps.Accounts.AppendTopic(ctx, acc.ID, best); err != nil {
		return err
	}
	acc.TopicQueue = append(acc.TopicQueue, best)
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"accountId": acc.ID.Hex(),
		"topic":     best,
	}).Info("📋 [QUEUE] Đã thêm topic mới")
	return nil
}

func (s *Scheduler) processAccount(ctx context.Context, acc *automodels.Account) (AccountResult, error) {
	res := AccountResult{AccountID: acc.ID}

	active, err := s.deps.Projects.HasActiveProjectForAccount(ctx, acc.ID)
	if err != nil {
		return res, err
	}
	if active {
		res.Skipped = "account already has a project in progress"
		return res, nil
	}
	if len(acc.TopicQueue) == 0 {
		res.Skipped = "topic queue is empty"
		return res, nil
	}
	castID, err := s.pickCast(acc.CastWeights)
	if err != nil {
		if errors.Is(err, common.ErrNoCast) {
			res.Skipped = "no cast configured"
			return res, nil
		}
		return res, err
	}

	if err := s.deps.Credits.ConsumeCredit(ctx, acc.UserID); err != nil {
		if errors.Is(err, common.ErrInsufficientCredits) {
			res.Skipped = "no video credits left"
			return res, nil
		}
		return res, err
	}

	topic := acc.TopicQueue[0]
	accountID := acc.ID
	project, err := s.deps.Projects.CreateProject(ctx, &models.Project{
		Topic:     topic,
		UserID:    acc.UserID,
		CastID:    castID,
		AccountID: &accountID,
		Status:    models.ProjectStatusGathering,
	})
	if err != nil {
		s.refund(ctx, acc)
		return res, err
	}

	runID, err := s.deps.Runner.Start(ctx, project.ID)
	if err != nil {
		// Project không có run thì phải ra khỏi trạng thái đang chạy, nếu không account bị bỏ qua mãi
		if ferr := s.deps.Projects.RecordFailure(ctx, project.ID, pipeline.StartFailureMessage(err)); ferr != nil {
			logger.GetAppLogger().WithFields(map[string]interface{}{
				"projectId": project.ID.Hex(),
			}).WithError(ferr).Error("⏰ [SCHEDULER] Không ghi được lỗi khởi động cho project")
		}
		s.refund(ctx, acc)
		return res, err
	}

	id := project.ID
	res.ProjectID = &id
	res.RunID = runID
	res.Topic = topic
	logger.GetAppLogger().WithFields(map[string]interface{}{
		"accountId": acc.ID.Hex(),
		"projectId": project.ID.Hex(),
		"castId":    castID.Hex(),
		"topic":     topic,
	}).Info("⏰ [SCHEDULER] Đã tạo project và khởi động pipeline")
	return res, nil
}

func (s *Scheduler) refund(ctx context.Context, acc *automodels.Account) {
	if err := s.deps.Credits.RefundCredit(ctx, acc.UserID); err != nil {
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"accountId": acc.ID.Hex(),
		}).WithError(err).Error("⏰ [SCHEDULER] Hoàn lượt thất bại")
	}
}
