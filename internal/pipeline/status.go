package pipeline

import (
	"shorts_farm/internal/api/studio/models"
)

// stageOrder thứ tự tuyến tính của các trạng thái (không gồm error)
var stageOrder = []models.ProjectStatus{
	models.ProjectStatusGathering,
	models.ProjectStatusPlanning,
	models.ProjectStatusWriting,
	models.ProjectStatusGeneratingVoices,
	models.ProjectStatusRendering,
	models.ProjectStatusDone,
}

// CancelledMessage statusMessage khi run bị hủy
const CancelledMessage = "Workflow cancelled"

// RerenderMessage statusMessage khi render lại
const RerenderMessage = "Re-rendering video"

// StartFailureMessage statusMessage của project đã tạo nhưng không khởi động được run
func StartFailureMessage(err error) string {
	return "Failed to start workflow: " + err.Error()
}

func stageIndex(s models.ProjectStatus) int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsValidStatus trạng thái có thuộc tập đã biết
func IsValidStatus(s models.ProjectStatus) bool {
	return s == models.ProjectStatusError || stageIndex(s) >= 0
}

// NextStatus trạng thái kế tiếp theo thứ tự stage; false với done, error hoặc trạng thái lạ
func NextStatus(s models.ProjectStatus) (models.ProjectStatus, bool) {
	i := stageIndex(s)
	if i < 0 || i == len(stageOrder)-1 {
		return "", false
	}
	return stageOrder[i+1], true
}

// CanAdvance chỉ cho phép đi tới đúng một bước
func CanAdvance(from, to models.ProjectStatus) bool {
	next, ok := NextStatus(from)
	return ok && next == to
}

// CanFail mọi trạng thái trừ error đều có thể chuyển sang error
func CanFail(from models.ProjectStatus) bool {
	return from != models.ProjectStatusError && IsValidStatus(from)
}

// CanRerunInto rerun (lệnh tường minh) được phép đưa project về bất kỳ trạng thái stage nào trừ done
func CanRerunInto(to models.ProjectStatus) bool {
	i := stageIndex(to)
	return i >= 0 && to != models.ProjectStatusDone
}

// IsTerminal orchestrator không tự chạy tiếp từ done và error
func IsTerminal(s models.ProjectStatus) bool {
	return s == models.ProjectStatusDone || s == models.ProjectStatusError
}

// ResumeStatus trạng thái ngay sau artifact cuối cùng đã hoàn thành.
// script có thể nil khi project chưa có scriptId.
func ResumeStatus(p *models.Project, script *models.Script) models.ProjectStatus {
	switch {
	case p.VideoID != nil:
		return models.ProjectStatusDone
	case !p.HasPlan() && p.ScriptID == nil:
		return models.ProjectStatusGathering
	case p.ScriptID == nil:
		return models.ProjectStatusWriting
	case script == nil || !script.FullyVoiced():
		return models.ProjectStatusGeneratingVoices
	default:
		return models.ProjectStatusRendering
	}
}
