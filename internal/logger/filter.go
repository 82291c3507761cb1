package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// filteredKey field đánh dấu entry bị loại, AsyncHook sẽ bỏ qua
const filteredKey = "_filtered"

// FilterHook loại log theo module và level tối thiểu của từng module.
// Entry không bị xóa ở đây mà chỉ được đánh dấu để AsyncHook bỏ qua.
type FilterHook struct {
	allowAll     bool
	modules      map[string]bool
	moduleLevels map[string]logrus.Level
}

// NewFilterHook tạo hook từ cấu hình
func NewFilterHook(cfg *LogConfig) *FilterHook {
	h := &FilterHook{
		modules:      make(map[string]bool),
		moduleLevels: make(map[string]logrus.Level),
	}
	for _, m := range cfg.FilterModules {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if m == "*" {
			h.allowAll = true
		}
		h.modules[m] = true
	}
	if len(h.modules) == 0 {
		h.allowAll = true
	}
	for _, pair := range cfg.FilterModuleLevels {
		name, lvl, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		level, err := logrus.ParseLevel(strings.TrimSpace(lvl))
		if err != nil {
			continue
		}
		h.moduleLevels[strings.ToLower(strings.TrimSpace(name))] = level
	}
	return h
}

// Levels hook áp dụng cho mọi level
func (h *FilterHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire đánh dấu entry bị loại
func (h *FilterHook) Fire(entry *logrus.Entry) error {
	if !h.allow(entry) {
		entry.Data[filteredKey] = true
	}
	return nil
}

func (h *FilterHook) allow(entry *logrus.Entry) bool {
	// Lỗi luôn được ghi
	if entry.Level <= logrus.ErrorLevel {
		return true
	}
	module, _ := entry.Data["module"].(string)
	module = strings.ToLower(module)
	if module == "" {
		return true
	}
	if !h.allowAll && !h.modules[module] {
		return false
	}
	if floor, ok := h.moduleLevels[module]; ok && entry.Level > floor {
		return false
	}
	return true
}
