package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultParallelism số bước collaborator tối đa chạy song song trên toàn process
const DefaultParallelism = 4

// StepLimiter giới hạn số bước gọi collaborator đang chạy cùng lúc, dùng chung cho mọi run
type StepLimiter struct {
	sem  *semaphore.Weighted
	size int
}

// NewStepLimiter tạo limiter với trần size (<= 0 thì dùng DefaultParallelism)
func NewStepLimiter(size int) *StepLimiter {
	if size <= 0 {
		size = DefaultParallelism
	}
	return &StepLimiter{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size trần song song
func (l *StepLimiter) Size() int {
	return l.size
}

// Do chờ slot rồi chạy fn. Trả về ctx.Err() nếu ctx hết hạn khi đang chờ
func (l *StepLimiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)
	return fn(ctx)
}

// MemoryCancelSignals cờ hủy trong bộ nhớ, dùng khi chạy một instance hoặc trong test
type MemoryCancelSignals struct {
	mu    sync.Mutex
	flags map[string]struct{}
}

// NewMemoryCancelSignals tạo store rỗng
func NewMemoryCancelSignals() *MemoryCancelSignals {
	return &MemoryCancelSignals{flags: make(map[string]struct{})}
}

func (m *MemoryCancelSignals) RequestCancel(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[projectID] = struct{}{}
	return nil
}

func (m *MemoryCancelSignals) IsCancelRequested(_ context.Context, projectID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.flags[projectID]
	return ok, nil
}

func (m *MemoryCancelSignals) ClearCancel(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, projectID)
	return nil
}
