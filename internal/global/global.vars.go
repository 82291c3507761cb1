package global

import (
	"github.com/go-playground/validator/v10"
)

// MongoDB_CollectionName tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	Projects           string
	Scripts            string
	Videos             string
	Casts              string
	Characters         string
	Assets             string
	AutomationAccounts string
	UserCredits        string
	ScheduledPosts     string
	MediaBucket        string // GridFS bucket
}

// MongoDB_ColNames tên collection dùng trong toàn ứng dụng
var MongoDB_ColNames = MongoDB_CollectionName{
	Projects:           "projects",
	Scripts:            "scripts",
	Videos:             "videos",
	Casts:              "casts",
	Characters:         "characters",
	Assets:             "assets",
	AutomationAccounts: "automation_accounts",
	UserCredits:        "user_credits",
	ScheduledPosts:     "scheduled_posts",
	MediaBucket:        "media",
}

// Validate validator dùng chung cho DTO, khởi tạo bởi InitValidator
var Validate *validator.Validate
