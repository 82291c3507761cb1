// Package pipeline điều phối vòng đời tạo video của một project: research, plan, write, voice, render.
//
// Mỗi stage kiểm tra artifact đã lưu (plan, script, video) trước khi gọi collaborator, nên chạy lại
// một project luôn tiếp tục từ artifact cuối cùng. Mọi lỗi đều quy về RecordFailure(statusMessage).
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/registry"
	"shorts_farm/internal/timeline"
)

// Config cấu hình orchestrator
type Config struct {
	FPS int // Frame rate dùng cho timeline và căn caption (mặc định 30)
}

// Orchestrator chạy các stage của project. An toàn khi dùng từ nhiều goroutine.
type Orchestrator struct {
	deps Deps
	fps  int

	// projectID -> runID của run đang chạy trong process này
	runs *registry.Registry[string]
	wg   sync.WaitGroup

	rngMu sync.Mutex
	rng   *rand.Rand
	now   func() time.Time
}

// NewOrchestrator tạo orchestrator. Các store là bắt buộc; Cancels và Limiter có giá trị mặc định.
func NewOrchestrator(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Projects == nil || deps.Scripts == nil || deps.Videos == nil || deps.Casts == nil || deps.Assets == nil {
		return nil, fmt.Errorf("pipeline stores are required: %w", common.ErrRequiredField)
	}
	if deps.Cancels == nil {
		deps.Cancels = NewMemoryCancelSignals()
	}
	if deps.Limiter == nil {
		deps.Limiter = NewStepLimiter(DefaultParallelism)
	}
	fps := cfg.FPS
	if fps <= 0 {
		fps = timeline.DefaultFPS
	}
	return &Orchestrator{
		deps: deps,
		fps:  fps,
		runs: registry.NewRegistry[string](),
		rng:  rand.New(rand.NewSource(rand.Int63())),
		now:  time.Now,
	}, nil
}

// FPS frame rate đang dùng
func (o *Orchestrator) FPS() int {
	return o.fps
}

// SetRandSource thay nguồn ngẫu nhiên (chọn background), dùng trong test
func (o *Orchestrator) SetRandSource(src rand.Source) {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	o.rng = rand.New(src)
}

// SetClock thay đồng hồ (tính giờ đăng bài), dùng trong test
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

func (o *Orchestrator) intn(n int) int {
	o.rngMu.Lock()
	defer o.rngMu.Unlock()
	return o.rng.Intn(n)
}

// IsActive project có run đang chạy trong process này không
func (o *Orchestrator) IsActive(projectID primitive.ObjectID) bool {
	return o.runs.Exists(projectID.Hex())
}

// ActiveRuns project id có run đang chạy trong process này
func (o *Orchestrator) ActiveRuns() []string {
	return o.runs.Keys()
}

// Start chạy nền một run cho project. Trả về runID.
func (o *Orchestrator) Start(ctx context.Context, projectID primitive.ObjectID) (string, error) {
	runID, err := o.acquire(ctx, projectID)
	if err != nil {
		return "", err
	}
	o.launch(ctx, projectID, runID)
	return runID, nil
}

// Run chạy đồng bộ một run cho project, trả về lỗi của stage đầu tiên thất bại
func (o *Orchestrator) Run(ctx context.Context, projectID primitive.ObjectID) error {
	runID, err := o.acquire(ctx, projectID)
	if err != nil {
		return err
	}
	defer o.release(projectID, runID)
	return o.execute(ctx, projectID, runID)
}

// Rerun tiếp tục project từ artifact cuối cùng đã hoàn thành
func (o *Orchestrator) Rerun(ctx context.Context, projectID primitive.ObjectID) (string, error) {
	return o.restart(ctx, projectID, func(ctx context.Context, p *models.Project) error {
		script, err := o.loadScript(ctx, p)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		// Job render cũ (nếu có) không còn được theo dõi, render stage sẽ gửi job mới
		return o.reset(ctx, p, models.ProjectReset{Status: ResumeStatus(p, script), ClearRender: true})
	})
}

// RerunFromScratch xóa plan/script/video của project rồi chạy lại từ gathering
func (o *Orchestrator) RerunFromScratch(ctx context.Context, projectID primitive.ObjectID) (string, error) {
	return o.restart(ctx, projectID, func(ctx context.Context, p *models.Project) error {
		err := o.reset(ctx, p, models.ProjectReset{
			Status:      models.ProjectStatusGathering,
			ClearPlan:   true,
			ClearScript: true,
			ClearVideo:  true,
			ClearRender: true,
		})
		if err != nil {
			return err
		}
		return o.deps.Scripts.DeleteScriptsByProject(ctx, p.ID)
	})
}

// Rerender render lại từ script đã có voice, bỏ video cũ
func (o *Orchestrator) Rerender(ctx context.Context, projectID primitive.ObjectID) (string, error) {
	return o.restart(ctx, projectID, func(ctx context.Context, p *models.Project) error {
		script, err := o.loadScript(ctx, p)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		if !script.FullyVoiced() {
			return fmt.Errorf("rerender requires a voiced script: %w", common.ErrMissingArtifact)
		}
		return o.reset(ctx, p, models.ProjectReset{
			Status:        models.ProjectStatusRendering,
			StatusMessage: RerenderMessage,
			ClearVideo:    true,
			ClearRender:   true,
		})
	})
}

// Cancel hủy run của project. Run đang chạy dừng trước stage kế tiếp; không có run thì ghi lỗi ngay.
func (o *Orchestrator) Cancel(ctx context.Context, projectID primitive.ObjectID) error {
	p, err := o.deps.Projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if p.Status == models.ProjectStatusDone {
		return fmt.Errorf("project is already done: %w", common.ErrInvalidState)
	}

	// Cờ hủy được chia sẻ (redis) nên run trên instance khác cũng thấy
	if err := o.deps.Cancels.RequestCancel(ctx, projectID.Hex()); err != nil {
		return err
	}
	if o.IsActive(projectID) {
		logger.GetAppLogger().WithFields(map[string]interface{}{
			"projectId": projectID.Hex(),
		}).Info("🛑 [PIPELINE] Đã yêu cầu hủy, run sẽ dừng trước stage kế tiếp")
		return nil
	}
	if !CanFail(p.Status) {
		return nil
	}
	return o.fail(ctx, p, CancelledMessage)
}

// reset đưa project về một trạng thái stage để chạy lại; done không phải đích hợp lệ
func (o *Orchestrator) reset(ctx context.Context, p *models.Project, r models.ProjectReset) error {
	if !CanRerunInto(r.Status) {
		if r.Status == models.ProjectStatusDone {
			return fmt.Errorf("project already has a video: %w", common.ErrInvalidOperation)
		}
		return fmt.Errorf("cannot rerun project into %q: %w", r.Status, common.ErrInvalidOperation)
	}
	return o.deps.Projects.ResetForRerun(ctx, p.ID, r)
}

// advance chuyển project từ from sang bước kế tiếp; project đã qua from thì bỏ qua
func (o *Orchestrator) advance(ctx context.Context, p *models.Project, from models.ProjectStatus) error {
	if p.Status != from {
		return nil
	}
	to, ok := NextStatus(from)
	if !ok {
		return fmt.Errorf("project cannot advance from %q: %w", from, common.ErrInvalidState)
	}
	if err := o.deps.Projects.AdvanceStage(ctx, p.ID, from, to); err != nil {
		return err
	}
	p.Status = to
	return nil
}

// expectAdvance kiểm tra project đang đứng ngay trước to
func expectAdvance(p *models.Project, to models.ProjectStatus) error {
	if !CanAdvance(p.Status, to) {
		return fmt.Errorf("project cannot move from %q to %q: %w", p.Status, to, common.ErrInvalidState)
	}
	return nil
}

// Wait chờ mọi run nền và post-render kết thúc
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// ====================================
// RUN LIFECYCLE
// ====================================

func (o *Orchestrator) acquire(ctx context.Context, projectID primitive.ObjectID) (string, error) {
	runID := uuid.NewString()
	ok, err := o.runs.RegisterIfAbsent(projectID.Hex(), runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", common.ErrRunActive
	}
	// Cờ hủy còn sót từ lần trước không áp dụng cho run mới
	if err := o.deps.Cancels.ClearCancel(ctx, projectID.Hex()); err != nil {
		logger.GetAppLogger().WithError(err).Warn("🎬 [PIPELINE] Không xóa được cờ hủy cũ")
	}
	if err := o.deps.Projects.SetWorkflowRunID(ctx, projectID, runID); err != nil {
		o.release(projectID, runID)
		return "", err
	}
	return runID, nil
}

func (o *Orchestrator) release(projectID primitive.ObjectID, runID string) {
	o.runs.ClearIf(projectID.Hex(), func(current string) bool { return current == runID })
}

func (o *Orchestrator) restart(ctx context.Context, projectID primitive.ObjectID, prepare func(ctx context.Context, p *models.Project) error) (string, error) {
	runID, err := o.acquire(ctx, projectID)
	if err != nil {
		return "", err
	}
	p, err := o.deps.Projects.GetProject(ctx, projectID)
	if err == nil {
		err = prepare(ctx, p)
	}
	if err != nil {
		o.release(projectID, runID)
		return "", err
	}
	o.launch(ctx, projectID, runID)
	return runID, nil
}

// launch chạy execute trên goroutine riêng, không phụ thuộc vòng đời request
func (o *Orchestrator) launch(ctx context.Context, projectID primitive.ObjectID, runID string) {
	bg := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release(projectID, runID)
		defer func() {
			if r := recover(); r != nil {
				logger.GetErrorLogger().WithFields(map[string]interface{}{
					"projectId": projectID.Hex(),
					"runId":     runID,
					"panic":     r,
				}).Error("🎬 [PIPELINE] Panic trong run")
				_ = o.deps.Projects.RecordFailure(bg, projectID, fmt.Sprintf("Internal error: %v", r))
			}
		}()
		if err := o.execute(bg, projectID, runID); err != nil {
			logger.GetAppLogger().WithFields(map[string]interface{}{
				"projectId": projectID.Hex(),
				"runId":     runID,
			}).WithError(err).Warn("🎬 [PIPELINE] Run kết thúc với lỗi")
		}
	}()
}

// runState dữ liệu của một run, nạp dần theo stage
type runState struct {
	id      string
	project *models.Project
	script  *models.Script
	cast    *castBundle
}

type stage struct {
	name string
	fn   func(ctx context.Context, rs *runState) error
}

func (o *Orchestrator) execute(ctx context.Context, projectID primitive.ObjectID, runID string) error {
	log := logger.GetAppLogger()

	p, err := o.deps.Projects.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	if IsTerminal(p.Status) {
		if p.Status == models.ProjectStatusError {
			return fmt.Errorf("project is in error state, rerun it first: %w", common.ErrInvalidState)
		}
		return nil
	}

	rs := &runState{id: runID, project: p}
	stages := []stage{
		{"research-plan", o.stagePlan},
		{"write", o.stageWrite},
		{"voice", o.stageVoice},
		{"render", o.stageRender},
		{"complete", o.stageComplete},
	}

	log.WithFields(map[string]interface{}{
		"projectId": projectID.Hex(),
		"runId":     runID,
		"status":    p.Status,
	}).Info("🎬 [PIPELINE] Bắt đầu run")

	for _, st := range stages {
		cancelled, err := o.deps.Cancels.IsCancelRequested(ctx, projectID.Hex())
		if err != nil {
			log.WithError(err).Warn("🎬 [PIPELINE] Không đọc được cờ hủy, tiếp tục")
		}
		if cancelled {
			_ = o.deps.Cancels.ClearCancel(ctx, projectID.Hex())
			if ferr := o.fail(ctx, rs.project, CancelledMessage); ferr != nil {
				return ferr
			}
			return common.ErrRunCancelled
		}

		if err := st.fn(ctx, rs); err != nil {
			log.WithFields(map[string]interface{}{
				"projectId": projectID.Hex(),
				"runId":     runID,
				"stage":     st.name,
			}).WithError(err).Error("🎬 [PIPELINE] Stage thất bại")
			if ferr := o.fail(ctx, rs.project, err.Error()); ferr != nil {
				log.WithError(ferr).Error("🎬 [PIPELINE] Không ghi được lỗi cho project")
			}
			return err
		}
	}

	log.WithFields(map[string]interface{}{
		"projectId": projectID.Hex(),
		"runId":     runID,
	}).Info("🎬 [PIPELINE] Run hoàn tất, chờ kết quả render")
	return nil
}

// fail ghi lỗi lên project và báo cho chủ account nếu project thuộc automation account
func (o *Orchestrator) fail(ctx context.Context, p *models.Project, message string) error {
	// Đã ở error thì giữ nguyên statusMessage đầu tiên và không báo lại
	if !CanFail(p.Status) {
		return nil
	}
	if err := o.deps.Projects.RecordFailure(ctx, p.ID, message); err != nil {
		return err
	}
	p.Status = models.ProjectStatusError
	p.StatusMessage = message

	if o.deps.Notifier == nil || o.deps.Accounts == nil || !p.IsAccountTagged() {
		return nil
	}
	account, err := o.deps.Accounts.GetAccount(ctx, *p.AccountID)
	if err != nil {
		logger.GetAppLogger().WithError(err).Warn("🎬 [PIPELINE] Không đọc được account để gửi thông báo lỗi")
		return nil
	}
	if err := o.deps.Notifier.NotifyFailure(ctx, p, account, message); err != nil {
		logger.GetAppLogger().WithError(err).Warn("🎬 [PIPELINE] Gửi thông báo lỗi thất bại")
	}
	return nil
}

func (o *Orchestrator) loadScript(ctx context.Context, p *models.Project) (*models.Script, error) {
	if p.ScriptID == nil {
		return nil, nil
	}
	return o.deps.Scripts.GetScript(ctx, *p.ScriptID)
}

// step chạy một lần gọi collaborator trong giới hạn song song chung
func (o *Orchestrator) step(ctx context.Context, fn func(ctx context.Context) error) error {
	return o.deps.Limiter.Do(ctx, fn)
}
