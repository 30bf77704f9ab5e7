package cache

import (
	"sync"

	"github.com/hszk-dev/atelier/internal/domain/repository"
)

// listeners is the OnChange registry shared by the mirrors.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[repository.Collection]map[int]func()
}

func (l *listeners) add(collection repository.Collection, fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[repository.Collection]map[int]func())
	}
	if l.fns[collection] == nil {
		l.fns[collection] = make(map[int]func())
	}
	id := l.next
	l.next++
	l.fns[collection][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.fns[collection], id)
		})
	}
}

// notify calls every listener of collection outside the lock.
func (l *listeners) notify(collection repository.Collection) {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns[collection]))
	for _, fn := range l.fns[collection] {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
