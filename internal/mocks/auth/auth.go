package auth

// Package auth contains simple hand-written test doubles for the
// credential/session ports. These are lightweight and suitable for unit
// tests without codegen.

import (
	"context"
	"sync"

	"github.com/evently/evently-go/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.BackingStore = (*MemoryBackingStore)(nil)
	_ ports.Dispatcher   = (*ScriptedDispatcher)(nil)
)

// MemoryBackingStore is an in-memory BackingStore. Optional hook funcs let
// tests inject failures per operation.
type MemoryBackingStore struct {
	mu   sync.Mutex
	data map[string]string

	SetFunc    func(ctx context.Context, key, value string) error
	GetFunc    func(ctx context.Context, key string) (string, error)
	DeleteFunc func(ctx context.Context, key string) error
}

// NewMemoryBackingStore creates an empty in-memory store.
func NewMemoryBackingStore() *MemoryBackingStore {
	return &MemoryBackingStore{data: make(map[string]string)}
}

func (m *MemoryBackingStore) Set(ctx context.Context, key, value string) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryBackingStore) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return value, nil
}

func (m *MemoryBackingStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Len reports how many keys the store currently holds.
func (m *MemoryBackingStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// Seed writes a key directly, bypassing the hooks.
func (m *MemoryBackingStore) Seed(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// DispatchCall records one Do invocation.
type DispatchCall struct {
	Method   string
	Endpoint string
	Body     any
}

// ScriptedDispatcher is a Dispatcher double driven by DoFunc, recording
// every call it receives.
type ScriptedDispatcher struct {
	mu    sync.Mutex
	calls []DispatchCall

	DoFunc func(ctx context.Context, method, endpoint string, body, out any) error
}

func (s *ScriptedDispatcher) Do(ctx context.Context, method, endpoint string, body, out any) error {
	s.mu.Lock()
	s.calls = append(s.calls, DispatchCall{Method: method, Endpoint: endpoint, Body: body})
	s.mu.Unlock()

	if s.DoFunc != nil {
		return s.DoFunc(ctx, method, endpoint, body, out)
	}
	return nil
}

// Calls returns a copy of the recorded invocations.
func (s *ScriptedDispatcher) Calls() []DispatchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DispatchCall, len(s.calls))
	copy(out, s.calls)
	return out
}
