package global

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type seedDTO struct {
	Topic string   `json:"topic" validate:"topic_or_urls,no_xss"`
	URLs  []string `json:"urls" validate:"omitempty,dive,url"`
	At    string   `json:"postSchedule" validate:"hhmm"`
}

func (s *seedDTO) SeedTopic() string  { return s.Topic }
func (s *seedDTO) SeedURLs() []string { return s.URLs }

func TestValidator_TopicOrURLs(t *testing.T) {
	InitValidator()

	assert.NoError(t, Validate.Struct(&seedDTO{Topic: "Cá mập"}), "Có topic là hợp lệ")
	assert.NoError(t, Validate.Struct(&seedDTO{URLs: []string{"https://example.com/a"}}), "Chỉ có url là hợp lệ")
	assert.Error(t, Validate.Struct(&seedDTO{}), "Thiếu cả topic và url phải lỗi")
	assert.Error(t, Validate.Struct(&seedDTO{Topic: "  ", URLs: []string{" "}}), "Chuỗi trắng coi như rỗng")
}

func TestValidator_NoXSSAndHHMM(t *testing.T) {
	InitValidator()

	assert.Error(t, Validate.Struct(&seedDTO{Topic: "<SCRIPT>alert(1)</script>"}))
	assert.NoError(t, Validate.Struct(&seedDTO{Topic: "ok", At: "09:30"}))
	assert.Error(t, Validate.Struct(&seedDTO{Topic: "ok", At: "25:00"}))
}
