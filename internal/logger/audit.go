package logger

import (
	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// Các hành động điều khiển được ghi vào audit log
const (
	AuditProjectCreate       = "project_create"
	AuditProjectRerun        = "project_rerun"
	AuditProjectRerunScratch = "project_rerun_from_scratch"
	AuditProjectRerender     = "project_rerender"
	AuditProjectCancel       = "project_cancel"
	AuditAccountCreate       = "account_create"
	AuditTopicQueueChange    = "account_topic_queue_change"
	AuditSchedulerRun        = "scheduler_run"
	AuditCastCreate          = "cast_create"
	AuditAssetCreate         = "asset_create"
)

// LogAction ghi một hành động của user lên tài nguyên
func LogAction(c fiber.Ctx, action, resourceType, resourceID string, details map[string]interface{}) {
	fields := logrus.Fields{
		"action":        action,
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"ip":            c.IP(),
		"user_agent":    c.Get("User-Agent"),
	}
	if userID, ok := c.Locals("user_id").(string); ok {
		fields["user_id"] = userID
	}
	if id := RequestID(c); id != "" {
		fields["request_id"] = id
	}
	if len(details) > 0 {
		fields["details"] = details
	}
	GetAuditLogger().WithFields(fields).Info("Audit action")
}
