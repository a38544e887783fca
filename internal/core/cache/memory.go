package cache

import (
	"context"
	"sync"
	"time"
)

// Memory 进程内实现，未配置 redis 时的本地开发 / 测试替身
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	val    []byte
	expire time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memEntry{}, now: time.Now}
}

func (m *Memory) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()
	if ok && m.now().Before(e.expire) {
		return e.val, nil
	}
	b, err := load(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.entries[key] = memEntry{val: b, expire: m.now().Add(ttl)}
	m.mu.Unlock()
	return b, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Len 当前条目数
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
