// Package studiohdl chứa HTTP handler cho domain studio: project, preview timeline/caption, webhook render, media.
package studiohdl

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"

	basehdl "shorts_farm/internal/api/base/handler"
	basemodels "shorts_farm/internal/api/base/models"
	studiodto "shorts_farm/internal/api/studio/dto"
	"shorts_farm/internal/api/studio/models"
	"shorts_farm/internal/captions"
	"shorts_farm/internal/common"
	"shorts_farm/internal/logger"
	"shorts_farm/internal/pipeline"
	"shorts_farm/internal/timeline"
)

// ProjectStore thao tác project mà handler cần
type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) (*models.Project, error)
	GetProject(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	RecordFailure(ctx context.Context, id primitive.ObjectID, message string) error
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) (*basemodels.PaginateResult[models.Project], error)
}

// ScriptReader đọc script của project
type ScriptReader interface {
	FindScriptByProject(ctx context.Context, projectID primitive.ObjectID) (*models.Script, error)
}

// CreditStore lượt tạo video
type CreditStore interface {
	GetCredits(ctx context.Context, userID primitive.ObjectID) (*models.UserCredit, error)
	ConsumeCredit(ctx context.Context, userID primitive.ObjectID) error
	RefundCredit(ctx context.Context, userID primitive.ObjectID) error
}

// PostLister bài đăng đã lên lịch của project
type PostLister interface {
	ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.ScheduledPost, error)
}

// RunController điều khiển run của project (pipeline.Orchestrator)
type RunController interface {
	Start(ctx context.Context, projectID primitive.ObjectID) (string, error)
	Rerun(ctx context.Context, projectID primitive.ObjectID) (string, error)
	RerunFromScratch(ctx context.Context, projectID primitive.ObjectID) (string, error)
	Rerender(ctx context.Context, projectID primitive.ObjectID) (string, error)
	Cancel(ctx context.Context, projectID primitive.ObjectID) error
	ReportRenderOutcome(ctx context.Context, jobID string, outcome pipeline.RenderOutcome) error
	FPS() int
}

// ProjectHandler xử lý request liên quan đến project
type ProjectHandler struct {
	projects ProjectStore
	scripts  ScriptReader
	credits  CreditStore
	posts    PostLister
	runs     RunController
}

// NewProjectHandler tạo handler
func NewProjectHandler(projects ProjectStore, scripts ScriptReader, credits CreditStore, posts PostLister, runs RunController) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		scripts:  scripts,
		credits:  credits,
		posts:    posts,
		runs:     runs,
	}
}

// runContext context cho run nền: tách khỏi vòng đời request, giữ request id để lần log
func runContext(c fiber.Ctx) context.Context {
	return logger.ContextWithRequestID(context.Background(), logger.RequestID(c))
}

// ownedProject project theo :id, chỉ trả về khi thuộc user hiện tại
func (h *ProjectHandler) ownedProject(c fiber.Ctx) (*models.Project, error) {
	userID, err := basehdl.CurrentUserID(c)
	if err != nil {
		return nil, err
	}
	id, err := basehdl.ParamObjectID(c, "id")
	if err != nil {
		return nil, err
	}
	p, err := h.projects.GetProject(c.Context(), id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, common.ErrNotFound
	}
	return p, nil
}

// HandleCreateProject tạo project, trừ 1 lượt và khởi động pipeline
func (h *ProjectHandler) HandleCreateProject(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		userID, err := basehdl.CurrentUserID(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var input studiodto.ProjectCreateInput
		if err := basehdl.ParseAndValidate(c, &input); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		topic, err := input.ResolveTopic()
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		castID, err := input.ParseCastID()
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}

		ctx := c.Context()
		if err := h.credits.ConsumeCredit(ctx, userID); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		project, err := h.projects.CreateProject(ctx, &models.Project{
			Topic:          topic,
			URLs:           input.CleanURLs(),
			UserID:         userID,
			CastID:         castID,
			DoMoreResearch: input.DoMoreResearch,
			Status:         models.ProjectStatusGathering,
		})
		if err != nil {
			h.refund(c, userID)
			return basehdl.HandleResponse(c, nil, err)
		}
		runID, err := h.runs.Start(runContext(c), project.ID)
		if err != nil {
			if ferr := h.projects.RecordFailure(ctx, project.ID, pipeline.StartFailureMessage(err)); ferr != nil {
				logger.WithRequest(c).WithError(ferr).Error("Không ghi được lỗi khởi động cho project")
			}
			h.refund(c, userID)
			return basehdl.HandleResponse(c, nil, err)
		}
		project.WorkflowRunID = runID

		logger.LogAction(c, logger.AuditProjectCreate, "project", project.ID.Hex(), map[string]interface{}{
			"topic":  topic,
			"castId": castID.Hex(),
			"runId":  runID,
		})
		return basehdl.HandleResponseStatus(c, common.StatusAccepted, project, nil)
	})
}

func (h *ProjectHandler) refund(c fiber.Ctx, userID primitive.ObjectID) {
	if err := h.credits.RefundCredit(c.Context(), userID); err != nil {
		logger.WithRequest(c).WithError(err).Error("💳 Không hoàn được lượt tạo video")
	}
}

// HandleGetProject chi tiết project
func (h *ProjectHandler) HandleGetProject(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		p, err := h.ownedProject(c)
		return basehdl.HandleResponse(c, p, err)
	})
}

// HandleListProjects danh sách project của user, mới nhất trước
func (h *ProjectHandler) HandleListProjects(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		userID, err := basehdl.CurrentUserID(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		var q studiodto.ProjectListQuery
		if err := c.Bind().Query(&q); err != nil {
			return basehdl.HandleResponse(c, nil, common.ErrInvalidFormat)
		}
		q.Normalize()
		result, err := h.projects.ListByUser(c.Context(), userID, q.Page, q.Limit)
		return basehdl.HandleResponse(c, result, err)
	})
}

// control chạy một lệnh điều khiển run trên project thuộc user
func (h *ProjectHandler) control(c fiber.Ctx, action string, fn func(ctx context.Context, id primitive.ObjectID) (string, error)) error {
	return basehdl.SafeHandler(c, func() error {
		p, err := h.ownedProject(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		runID, err := fn(runContext(c), p.ID)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, action, "project", p.ID.Hex(), map[string]interface{}{"runId": runID})
		return basehdl.HandleResponseStatus(c, common.StatusAccepted, studiodto.RunStartedOutput{
			ProjectID: p.ID.Hex(),
			RunID:     runID,
		}, nil)
	})
}

// HandleRerun tiếp tục từ artifact cuối cùng
func (h *ProjectHandler) HandleRerun(c fiber.Ctx) error {
	return h.control(c, logger.AuditProjectRerun, h.runs.Rerun)
}

// HandleRerunFromScratch xóa artifact và chạy lại từ đầu
func (h *ProjectHandler) HandleRerunFromScratch(c fiber.Ctx) error {
	return h.control(c, logger.AuditProjectRerunScratch, h.runs.RerunFromScratch)
}

// HandleRerender render lại từ script đã có voice
func (h *ProjectHandler) HandleRerender(c fiber.Ctx) error {
	return h.control(c, logger.AuditProjectRerender, h.runs.Rerender)
}

// HandleCancel hủy run của project
func (h *ProjectHandler) HandleCancel(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		p, err := h.ownedProject(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if err := h.runs.Cancel(runContext(c), p.ID); err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		logger.LogAction(c, logger.AuditProjectCancel, "project", p.ID.Hex(), nil)
		return basehdl.HandleResponse(c, studiodto.RunStartedOutput{ProjectID: p.ID.Hex()}, nil)
	})
}

// HandleListPosts bài đăng Instagram/YouTube đã lên lịch cho project
func (h *ProjectHandler) HandleListPosts(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		p, err := h.ownedProject(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		posts, err := h.posts.ListByProject(c.Context(), p.ID)
		if posts == nil && err == nil {
			posts = []models.ScheduledPost{}
		}
		return basehdl.HandleResponse(c, posts, err)
	})
}

// HandleCredits số lượt tạo video còn lại của user
func (h *ProjectHandler) HandleCredits(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		userID, err := basehdl.CurrentUserID(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		credits, err := h.credits.GetCredits(c.Context(), userID)
		return basehdl.HandleResponse(c, credits, err)
	})
}

func (h *ProjectHandler) ownedScript(c fiber.Ctx) (*models.Script, error) {
	p, err := h.ownedProject(c)
	if err != nil {
		return nil, err
	}
	script, err := h.scripts.FindScriptByProject(c.Context(), p.ID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ArtifactError("Project has no script yet")
	}
	return script, err
}

// HandleTimeline preview timeline của script, cùng hàm Compile mà render dùng
func (h *ProjectHandler) HandleTimeline(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		script, err := h.ownedScript(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		return basehdl.HandleResponse(c, timeline.Compile(script, h.runs.FPS()), nil)
	})
}

// captionFrame kết quả preview phụ đề tại một frame
type captionFrame struct {
	Frame     int               `json:"frame"`
	PageCount int               `json:"pageCount"`
	Display   *captions.Display `json:"display"` // nil khi không có phụ đề tại frame
}

// HandleCaptions trang phụ đề hiển thị tại ?frame=N
func (h *ProjectHandler) HandleCaptions(c fiber.Ctx) error {
	return basehdl.SafeHandler(c, func() error {
		frame := 0
		if raw := c.Query("frame"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return basehdl.HandleResponse(c, nil, common.ValidationError("frame must be a non-negative integer"))
			}
			frame = n
		}
		script, err := h.ownedScript(c)
		if err != nil {
			return basehdl.HandleResponse(c, nil, err)
		}
		if len(script.Captions) == 0 {
			return basehdl.HandleResponse(c, nil, common.ArtifactError("Script has no captions yet"))
		}
		pager := captions.NewPaginator(script.Captions, h.runs.FPS(), captions.DefaultOptions())
		return basehdl.HandleResponse(c, captionFrame{
			Frame:     frame,
			PageCount: len(pager.Pages()),
			Display:   pager.At(frame),
		}, nil)
	})
}
