package ephemeral

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/burstreply-backend/internal/platform/clock"
)

type memItem struct {
	value     []byte
	list      []string
	isList    bool
	expiresAt time.Time
}

// Memory is a process-local Store. It is only correct for a single replica.
type Memory struct {
	mu    sync.Mutex
	clk   clock.Clock
	items map[string]*memItem
}

func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.System()
	}
	return &Memory{clk: clk, items: map[string]*memItem{}}
}

// live returns the item at key, dropping it first when expired. Caller holds mu.
func (m *Memory) live(key string) *memItem {
	it, ok := m.items[key]
	if !ok {
		return nil
	}
	if !it.expiresAt.IsZero() && !m.clk.Now().Before(it.expiresAt) {
		delete(m.items, key)
		return nil
	}
	return it
}

func (m *Memory) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.clk.Now().Add(ttl)
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.live(key)
	if it == nil {
		return nil, false, nil
	}
	if it.isList {
		return nil, false, ErrWrongType
	}
	return append([]byte(nil), it.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = &memItem{value: append([]byte(nil), value...), expiresAt: m.expiry(ttl)}
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(key) != nil {
		return false, nil
	}
	m.items[key] = &memItem{value: append([]byte(nil), value...), expiresAt: m.expiry(ttl)}
	return true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *Memory) ScanPrefix(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0)
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		it := m.live(k)
		if it == nil || it.isList {
			continue
		}
		out = append(out, Entry{Key: k, Value: append([]byte(nil), it.value...)})
	}
	return out, nil
}

func (m *Memory) Append(_ context.Context, key string, value string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.live(key)
	if it == nil {
		it = &memItem{isList: true}
		m.items[key] = it
	}
	if !it.isList {
		return 0, ErrWrongType
	}
	it.list = append(it.list, value)
	it.expiresAt = m.expiry(ttl)
	return int64(len(it.list)), nil
}

func (m *Memory) Drain(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.live(key)
	if it == nil {
		return []string{}, nil
	}
	if !it.isList {
		return nil, ErrWrongType
	}
	delete(m.items, key)
	return append([]string(nil), it.list...), nil
}

// TTL reports the remaining lifetime of key; zero when absent or persistent.
func (m *Memory) TTL(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.live(key)
	if it == nil || it.expiresAt.IsZero() {
		return 0
	}
	return it.expiresAt.Sub(m.clk.Now())
}

// Sweep drops expired keys and returns how many were removed.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.items {
		if m.live(k) == nil {
			n++
		}
	}
	return n
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
