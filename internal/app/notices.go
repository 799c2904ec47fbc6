package app

import (
	"sync"

	"autoescola-portal/internal/domain"
)

// NoticeBoard fans transient notices out to a user's open connections.
type NoticeBoard struct {
	mu          sync.Mutex
	subscribers map[string]map[chan domain.Notice]struct{}
}

func NewNoticeBoard() *NoticeBoard {
	return &NoticeBoard{subscribers: make(map[string]map[chan domain.Notice]struct{})}
}

// Subscribe registers a listener for userID. The caller must invoke cancel.
func (b *NoticeBoard) Subscribe(userID string) (<-chan domain.Notice, func()) {
	ch := make(chan domain.Notice, 8)

	b.mu.Lock()
	subs, ok := b.subscribers[userID]
	if !ok {
		subs = make(map[chan domain.Notice]struct{})
		b.subscribers[userID] = subs
	}
	subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[userID]
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(b.subscribers, userID)
		}
	}
	return ch, cancel
}

// Publish delivers n to every listener of userID without blocking; the oldest
// pending notice is dropped for listeners that fell behind.
func (b *NoticeBoard) Publish(userID string, n domain.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers[userID] {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- n
		}
	}
}
