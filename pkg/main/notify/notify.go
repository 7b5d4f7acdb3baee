// Package notify carries the toast messages shown to operators and forwards
// the serious ones to Pushover.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/google/uuid"
)

// Level is the severity of a toast.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

func (l Level) rank() int {
	switch l {
	case LevelSuccess:
		return 1
	case LevelWarning:
		return 2
	case LevelError:
		return 3
	}
	return 0
}

// ParseLevel returns the Level named s, defaulting to error.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return Level(s)
	case "warn":
		return LevelWarning
	}
	return LevelError
}

// Toast is one notification.
type Toast struct {
	ID        string
	Level     Level
	Title     string
	Message   string
	CreatedAt time.Time
}

// New builds a toast with a fresh id.
func New(level Level, title, message string) Toast {
	return Toast{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// Success builds a success toast.
func Success(title, message string) Toast {
	return New(LevelSuccess, title, message)
}

// FromError builds the toast of a failed action. Validation errors are
// warnings; everything else is an error.
func FromError(title string, err error) Toast {
	level := LevelError
	if apperrors.IsClass(err, apperrors.ErrClassValidation) {
		level = LevelWarning
	}
	return New(level, title, apperrors.UserMessage(err))
}

// Notifier receives toasts.
type Notifier interface {
	Notify(ctx context.Context, t Toast) error
}

// Queue keeps the toasts of one operator until the next page render.
type Queue struct {
	mu     sync.Mutex
	toasts []Toast
	max    int
}

// NewQueue returns a queue holding at most max toasts; older ones are
// dropped first. max <= 0 means 20.
func NewQueue(max int) *Queue {
	if max <= 0 {
		max = 20
	}
	return &Queue{max: max}
}

func (q *Queue) Notify(_ context.Context, t Toast) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.toasts = append(q.toasts, t)
	if over := len(q.toasts) - q.max; over > 0 {
		q.toasts = append(q.toasts[:0], q.toasts[over:]...)
	}
	return nil
}

// Drain returns the queued toasts oldest first and empties the queue.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.toasts
	q.toasts = nil
	return out
}

// Len returns the number of queued toasts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.toasts)
}

// Multi fans a toast out to several notifiers. nil entries are skipped.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, t Toast) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
