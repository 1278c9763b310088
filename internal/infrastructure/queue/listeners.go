package queue

import (
	"slices"
	"sync"

	"github.com/erp/gs1bridge/internal/domain/delivery"
)

// listeners tracks subscriptions per queue name
type listeners struct {
	mu    sync.RWMutex
	byKey map[string][]delivery.Listener
}

func newListeners() *listeners {
	return &listeners{byKey: make(map[string][]delivery.Listener)}
}

func (l *listeners) subscribe(name string, listener delivery.Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if slices.Contains(l.byKey[name], listener) {
		return
	}
	l.byKey[name] = append(l.byKey[name], listener)
}

func (l *listeners) unsubscribe(name string, listener delivery.Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byKey[name] = slices.DeleteFunc(l.byKey[name], func(x delivery.Listener) bool { return x == listener })
	if len(l.byKey[name]) == 0 {
		delete(l.byKey, name)
	}
}

// notify calls every listener of name outside the lock
func (l *listeners) notify(name string) {
	l.mu.RLock()
	subs := slices.Clone(l.byKey[name])
	l.mu.RUnlock()
	for _, s := range subs {
		s.QueueReady(name)
	}
}
