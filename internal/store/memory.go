package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Errors can be injected per key for tests.
type Memory struct {
	mu      sync.RWMutex
	values  map[string]string
	getErrs map[string]error
	setErrs map[string]error
	writes  int
}

func NewMemory() *Memory {
	return &Memory{
		values:  map[string]string{},
		getErrs: map[string]error{},
		setErrs: map[string]error{},
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.getErrs[key]; err != nil {
		return "", err
	}
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.setErrs[key]; err != nil {
		return err
	}
	m.values[key] = value
	m.writes++
	return nil
}

// FailGet makes every Get of key return err until cleared with a nil err.
func (m *Memory) FailGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.getErrs, key)
		return
	}
	m.getErrs[key] = err
}

// FailSet makes every Set of key return err until cleared with a nil err.
func (m *Memory) FailSet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.setErrs, key)
		return
	}
	m.setErrs[key] = err
}

// Writes returns the number of successful Set calls.
func (m *Memory) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
