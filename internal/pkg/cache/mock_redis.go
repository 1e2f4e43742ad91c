package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	r "github.com/go-redis/redis/v8"
)

type mockEntry struct {
	value     string
	expiresAt time.Time
}

// MockClient is an in-memory Client with expirations, for tests and local runs
type MockClient struct {
	mu   sync.Mutex
	data map[string]mockEntry
	Now  func() time.Time
	// Err, when set, is returned by every command
	Err error
}

func NewMockClient() *MockClient {
	return &MockClient{
		data: make(map[string]mockEntry),
		Now:  time.Now,
	}
}

func (m *MockClient) live(key string) (mockEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return e, false
	}
	if !e.expiresAt.IsZero() && !m.Now().Before(e.expiresAt) {
		delete(m.data, key)
		return e, false
	}
	return e, true
}

func (m *MockClient) store(key string, value interface{}, expiration time.Duration) {
	e := mockEntry{value: fmt.Sprintf("%v", value)}
	if expiration > 0 {
		e.expiresAt = m.Now().Add(expiration)
	}
	m.data[key] = e
}

func (m *MockClient) Get(ctx context.Context, key string) *r.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewStringCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	if e, ok := m.live(key); ok {
		cmd.SetVal(e.value)
	} else {
		cmd.SetErr(r.Nil)
	}
	return cmd
}

func (m *MockClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewStatusCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	m.store(key, value, expiration)
	cmd.SetVal("OK")
	return cmd
}

func (m *MockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewBoolCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	if _, ok := m.live(key); ok {
		cmd.SetVal(false)
		return cmd
	}
	m.store(key, value, expiration)
	cmd.SetVal(true)
	return cmd
}

func (m *MockClient) Del(ctx context.Context, keys ...string) *r.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewIntCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := m.live(k); ok {
			delete(m.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (m *MockClient) Ping(ctx context.Context) *r.StatusCmd {
	cmd := r.NewStatusCmd(ctx)
	if m.Err != nil {
		cmd.SetErr(m.Err)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}
