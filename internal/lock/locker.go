// Package lock: критическая секция по ключу координаты слота.
// Основная защита от гонок: уникальный индекс и блокировка строки в транзакции,
// Locker сужает окно конкуренции для хранилищ без них.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrNotAcquired: блокировку не удалось взять до истечения контекста
var ErrNotAcquired = errors.New("lock not acquired")

// Locker берёт эксклюзивную блокировку по ключу; unlock надо вызвать ровно один раз
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Noop ничего не блокирует
type Noop struct{}

func (Noop) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// Memory: блокировки внутри одного процесса
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]*memoryEntry)}
}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{ch: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, entry)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			m.release(key, entry)
		})
	}, nil
}

func (m *Memory) release(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}

// held возвращает количество ключей, по которым есть ожидающие или держатели
func (m *Memory) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
