// Package registry cung cấp registry generic, thread-safe, dùng để theo dõi các đối tượng sống theo key
// (ví dụ: run đang chạy của từng project).
package registry

import (
	"fmt"
	"sort"
	"sync"

	"shorts_farm/internal/common"
)

// Registry là một thread-safe generic registry.
//
// Example:
//
//	runs := NewRegistry[string]()
//	if ok, _ := runs.RegisterIfAbsent(projectID, runID); !ok {
//	    // đã có run khác đang chạy
//	}
type Registry[T any] struct {
	items map[string]T
	mu    sync.RWMutex
}

// NewRegistry tạo registry rỗng
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		items: make(map[string]T),
	}
}

// RegisterIfAbsent chỉ đăng ký khi chưa có item cùng tên.
// Trả về false nếu tên đã được giữ bởi item khác.
func (r *Registry[T]) RegisterIfAbsent(name string, item T) (bool, error) {
	if name == "" {
		return false, fmt.Errorf("name cannot be empty: %w", common.ErrRequiredField)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[name]; exists {
		return false, nil
	}
	r.items[name] = item
	return true, nil
}

// Get lấy item theo tên
func (r *Registry[T]) Get(name string) (item T, exists bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, exists = r.items[name]
	return item, exists
}

// Exists kiểm tra tên đã được đăng ký
func (r *Registry[T]) Exists(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// ClearIf chỉ xóa khi predicate đúng với item hiện tại.
// Dùng để run cũ không xóa nhầm entry của run mới cùng key.
func (r *Registry[T]) ClearIf(name string, predicate func(T) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, exists := r.items[name]
	if !exists || !predicate(item) {
		return false
	}
	delete(r.items, name)
	return true
}

// Keys danh sách tên đã đăng ký (đã sắp xếp)
func (r *Registry[T]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
