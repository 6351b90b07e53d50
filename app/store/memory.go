package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Memory is a single-process Store used when no Redis address is configured
// and in tests. All operations happen under one mutex, which gives the same
// atomicity guarantees as the Redis scripts.
type Memory struct {
	mu     sync.Mutex
	values map[string]memoryEntry
	lists  map[string]memoryList
	now    func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

type memoryList struct {
	items     []string
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]memoryEntry),
		lists:  make(map[string]memoryList),
		now:    time.Now,
	}
}

func (m *Memory) IncrWithCap(ctx context.Context, key string, cap int64, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := int64(0)
	entry, ok := m.liveEntry(key)
	if ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return false, fmt.Errorf("key %s does not hold an integer: %w", key, err)
		}
		current = parsed
	}

	if cap > 0 && current >= cap {
		return false, nil
	}

	expiresAt := entry.expiresAt
	if !ok {
		expiresAt = m.expiry(ttl)
	}
	m.values[key] = memoryEntry{value: strconv.FormatInt(current+1, 10), expiresAt: expiresAt}

	return true, nil
}

func (m *Memory) GetInt(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveEntry(key)
	if !ok {
		return 0, nil
	}

	parsed, err := strconv.ParseInt(entry.value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("key %s does not hold an integer: %w", key, err)
	}
	return parsed, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = memoryEntry{value: value, expiresAt: m.expiry(ttl)}
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveEntry(key)
	if !ok {
		return "", nil
	}
	return entry.value, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.liveEntry(key)
	return ok, nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.liveEntry(key); ok {
		return false, nil
	}

	m.values[key] = memoryEntry{value: value, expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *Memory) SetIfEquals(ctx context.Context, key, expected string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveEntry(key)
	if !ok || entry.value != expected {
		return false, nil
	}

	m.values[key] = memoryEntry{value: expected, expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *Memory) DelIfEquals(ctx context.Context, key, expected string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveEntry(key)
	if !ok || entry.value != expected {
		return false, nil
	}

	delete(m.values, key)
	return true, nil
}

func (m *Memory) PushCapped(ctx context.Context, key, value string, max int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.liveList(key)
	if !ok {
		list = memoryList{expiresAt: m.expiry(ttl)}
	}

	list.items = append([]string{value}, list.items...)
	if max > 0 && int64(len(list.items)) > max {
		list.items = list.items[:max]
	}
	m.lists[key] = list

	return nil
}

func (m *Memory) Range(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, ok := m.liveList(key)
	if !ok {
		return nil, nil
	}

	items := make([]string, len(list.items))
	copy(items, list.items)
	return items, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) liveEntry(key string) (memoryEntry, bool) {
	entry, ok := m.values[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.values, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *Memory) liveList(key string) (memoryList, bool) {
	list, ok := m.lists[key]
	if !ok {
		return memoryList{}, false
	}
	if !list.expiresAt.IsZero() && m.now().After(list.expiresAt) {
		delete(m.lists, key)
		return memoryList{}, false
	}
	return list, true
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}
