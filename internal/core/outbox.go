package core

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PendingReply is one queued packet waiting for the flush loop.
type PendingReply struct {
	Key           string
	Type          string
	Payload       string
	Attempts      int
	QueuedAt      time.Time
	LastAttemptAt time.Time
	LastError     string
}

// Outbox stores pending replies by key. A newer reply for the same key
// replaces the queued one, so repeated queries coalesce.
type Outbox struct {
	mu    sync.RWMutex
	items map[string]PendingReply
}

func NewOutbox() *Outbox {
	return &Outbox{
		items: make(map[string]PendingReply),
	}
}

func (o *Outbox) Upsert(item PendingReply) {
	key := strings.TrimSpace(item.Key)
	if key == "" {
		return
	}
	item.Key = key
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items[key] = item
}

func (o *Outbox) MarkAttempt(key string, at time.Time, lastErr string) (PendingReply, bool) {
	key = strings.TrimSpace(key)
	o.mu.Lock()
	defer o.mu.Unlock()
	item, ok := o.items[key]
	if !ok {
		return PendingReply{}, false
	}
	item.Attempts++
	item.LastAttemptAt = at
	item.LastError = strings.TrimSpace(lastErr)
	o.items[key] = item
	return item, true
}

func (o *Outbox) Remove(key string) {
	key = strings.TrimSpace(key)
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.items, key)
}

func (o *Outbox) Get(key string) (PendingReply, bool) {
	key = strings.TrimSpace(key)
	o.mu.RLock()
	defer o.mu.RUnlock()
	item, ok := o.items[key]
	return item, ok
}

func (o *Outbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// List returns a snapshot ordered by key.
func (o *Outbox) List() []PendingReply {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]PendingReply, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key < out[j].Key
	})
	return out
}
