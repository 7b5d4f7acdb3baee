package notify

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kellerman81/go_admissions_admin/pkg/main/apperrors"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/config"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/logger"
	"github.com/Kellerman81/go_admissions_admin/pkg/main/worker"
	"github.com/gregdel/pushover"
)

type pushoverSender interface {
	SendMessage(message *pushover.Message, recipient *pushover.Recipient) (*pushover.Response, error)
}

// Pushover forwards toasts at or above a minimum level.
type Pushover struct {
	app       pushoverSender
	recipient *pushover.Recipient
	minLevel  Level
	// breaker stops sending while the Pushover API keeps failing; nil sends always
	breaker *apperrors.CircuitBreaker
	// Prefix is prepended to every title, e.g. the operator name.
	Prefix string
}

// NewPushover returns nil when the app key or recipient is not configured.
func NewPushover(cfg *config.NotificationConfig) *Pushover {
	if cfg == nil || cfg.PushoverAppKey == "" || cfg.PushoverRecipient == "" {
		return nil
	}
	return &Pushover{
		app:       pushover.New(cfg.PushoverAppKey),
		recipient: pushover.NewRecipient(cfg.PushoverRecipient),
		minLevel:  ParseLevel(cfg.PushoverMinLevel),
		breaker:   apperrors.NewCircuitBreaker("pushover", 3, 5*time.Minute, 1),
	}
}

// Notify sends t when its level is high enough. The message must not be
// empty and is cut to the Pushover limits.
func (p *Pushover) Notify(_ context.Context, t Toast) error {
	if p == nil || t.Level.rank() < p.minLevel.rank() {
		return nil
	}
	if strings.TrimSpace(t.Message) == "" {
		return errors.New("message empty")
	}
	title := t.Title
	if p.Prefix != "" {
		title = p.Prefix + " - " + title
	}
	msg := pushover.NewMessageWithTitle(truncate(t.Message, 1024), truncate(title, 250))
	if t.Level == LevelError {
		msg.Priority = pushover.PriorityHigh
	}
	send := func() error {
		_, err := p.app.SendMessage(msg, p.recipient)
		return err
	}
	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(send)
	} else {
		err = send()
	}
	if err != nil {
		logger.LogDynamicany("error", "pushover send failed", err, "title", title)
		return err
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Async delivers toasts to Next on the background worker pool so a slow
// remote notifier never delays a request. When the pool is stopped the
// toast is delivered synchronously.
type Async struct {
	Next Notifier
}

func (a Async) Notify(ctx context.Context, t Toast) error {
	if a.Next == nil {
		return nil
	}
	err := worker.SubmitBackground("notify_"+string(t.Level), func(bctx context.Context) error {
		return a.Next.Notify(bctx, t)
	})
	if err != nil {
		return a.Next.Notify(ctx, t)
	}
	return nil
}
