package global

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// SeedInput DTO có topic hoặc urls, dùng cho rule topic_or_urls
type SeedInput interface {
	SeedTopic() string
	SeedURLs() []string
}

// InitValidator khởi tạo validator và đăng ký các custom rule
func InitValidator() {
	Validate = validator.New()
	// Báo lỗi theo tên json thay vì tên field Go
	Validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation("no_xss", validateNoXSS)
	_ = Validate.RegisterValidation("hhmm", validateHHMM)
	_ = Validate.RegisterValidation("topic_or_urls", validateTopicOrURLs)
}

var xssPatterns = []string{
	"<script",
	"javascript:",
	"onerror=",
	"onload=",
	"<iframe",
	"document.cookie",
}

// validateNoXSS chặn chuỗi chứa mẫu XSS thường gặp
func validateNoXSS(fl validator.FieldLevel) bool {
	value := strings.ToLower(fl.Field().String())
	for _, p := range xssPatterns {
		if strings.Contains(value, p) {
			return false
		}
	}
	return true
}

// validateHHMM giờ trong ngày dạng "HH:MM", rỗng hợp lệ
func validateHHMM(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	if v == "" {
		return true
	}
	_, err := time.Parse("15:04", v)
	return err == nil
}

// validateTopicOrURLs gắn trên field bất kỳ của struct cài SeedInput: cần topic hoặc ít nhất một url
func validateTopicOrURLs(fl validator.FieldLevel) bool {
	parent := fl.Parent()
	if parent.Kind() != reflect.Ptr && parent.CanAddr() {
		parent = parent.Addr()
	}
	seed, ok := parent.Interface().(SeedInput)
	if !ok {
		return true
	}
	if strings.TrimSpace(seed.SeedTopic()) != "" {
		return true
	}
	for _, u := range seed.SeedURLs() {
		if strings.TrimSpace(u) != "" {
			return true
		}
	}
	return false
}
