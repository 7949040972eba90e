package exam

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	tests     map[string]Test
	sessions  map[string]Session
	templates map[string]Template
}

func NewInMemoryStore() Store {
	return &memoryStore{
		tests:     map[string]Test{},
		sessions:  map[string]Session{},
		templates: map[string]Template{},
	}
}

// deepCopy round-trips through JSON so callers never share maps or slices
// with the stored value.
func deepCopy[T any](v T) T {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("exam: copy %T: %v", v, err))
	}
	if err := json.Unmarshal(b, &out); err != nil {
		panic(fmt.Sprintf("exam: copy %T: %v", v, err))
	}
	return out
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.tests[t.ID]; taken && t.ID != DefaultTestID {
		return fmt.Errorf("%w: test %q", ErrConflict, t.ID)
	}
	m.tests[t.ID] = deepCopy(t)
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, fmt.Errorf("%w: test %q", ErrNotFound, id)
	}
	return deepCopy(t), nil
}

func (m *memoryStore) PutSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = deepCopy(s)
	return nil
}

func (m *memoryStore) GetSession(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	return deepCopy(s), nil
}

func (m *memoryStore) UpdateSession(_ context.Context, id string, fn func(*Session) error) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: session %q", ErrNotFound, id)
	}
	s = deepCopy(s)
	if err := fn(&s); err != nil {
		return Session{}, err
	}
	m.sessions[id] = deepCopy(s)
	return s, nil
}

func (m *memoryStore) PutTemplate(_ context.Context, t Template) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = deepCopy(t)
	return nil
}

func (m *memoryStore) GetTemplate(_ context.Context, id string) (Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: saved test %q", ErrNotFound, id)
	}
	return deepCopy(t), nil
}

func (m *memoryStore) ListTemplates(_ context.Context) ([]Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, deepCopy(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}
