package kv

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process backend. Fail can be set to make every call
// report a backend error.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
	fail error
	sets int
}

// NewMemory returns an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

// Fail makes subsequent calls fail with err; nil restores normal operation.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// SetCalls reports how many Set calls were applied.
func (m *Memory) SetCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sets
}

func (m *Memory) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, wrap("get all", err)
	}
	out := make(map[string]json.RawMessage, len(m.data))
	for k, v := range m.data {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out, nil
}

func (m *Memory) Get(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.check(ctx); err != nil {
		return nil, wrap("get", err)
	}
	out := make(map[string]json.RawMessage)
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, items map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx); err != nil {
		return wrap("set", err)
	}
	for k, v := range items {
		m.data[k] = append(json.RawMessage(nil), v...)
	}
	m.sets++
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) check(ctx context.Context) error {
	if m.fail != nil {
		return m.fail
	}
	return ctx.Err()
}
