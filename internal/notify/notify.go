// Package notify queues the toast messages shown with the next page view.
package notify

import (
	"sync"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// GenericFailure is shown for network and unexpected errors.
const GenericFailure = "Something went wrong. Please try again."

type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Queue is bounded; the oldest toast is dropped when full.
type Queue struct {
	mu     sync.Mutex
	max    int
	toasts []Toast
	now    func() time.Time
}

func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 20
	}
	return &Queue{max: max, now: time.Now}
}

func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }
func (q *Queue) Error(msg string)   { q.push(LevelError, msg) }
func (q *Queue) Info(msg string)    { q.push(LevelInfo, msg) }

func (q *Queue) push(level Level, msg string) {
	if msg == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = append(q.toasts, Toast{Level: level, Message: msg, At: q.now()})
	if over := len(q.toasts) - q.max; over > 0 {
		q.toasts = append([]Toast(nil), q.toasts[over:]...)
	}
}

func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	if out == nil {
		return []Toast{}
	}
	return out
}
