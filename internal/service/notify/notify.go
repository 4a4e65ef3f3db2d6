// Package notify fans user-visible notifications out to toasts, logs, push and WhatsApp.
// Delivery is fire-and-forget: Notify never reports failures to the caller.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/apperr"
	"github.com/mamadbah2/comedor/internal/domain/models"
)

// Notifier raises a notification.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n models.Notification)

// Notify calls f.
func (f Func) Notify(ctx context.Context, n models.Notification) {
	f(ctx, n)
}

// Multi delivers to every notifier in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, n models.Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(ctx, n)
		}
	}
}

// Nop drops every notification.
type Nop struct{}

// Notify implements Notifier.
func (Nop) Notify(context.Context, models.Notification) {}

// Success raises a success toast.
func Success(ctx context.Context, n Notifier, kind models.NotificationKind, title, message string) {
	n.Notify(ctx, models.Notification{
		Kind:      kind,
		Level:     models.LevelSuccess,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// Failure raises an error toast for a failed operation. Rejected input is answered to the
// caller only and is not broadcast.
func Failure(ctx context.Context, n Notifier, title string, err error) {
	if err == nil || apperr.Is(err, apperr.KindValidation) {
		return
	}
	n.Notify(ctx, models.Notification{
		Kind:      models.NotificationError,
		Level:     models.LevelError,
		Title:     title,
		Message:   err.Error(),
		CreatedAt: time.Now(),
	})
}

// Filter forwards only the notifications accepted by keep.
func Filter(next Notifier, keep func(models.Notification) bool) Notifier {
	return Func(func(ctx context.Context, n models.Notification) {
		if keep(n) {
			next.Notify(ctx, n)
		}
	})
}

// OfKind accepts notifications of the given kinds.
func OfKind(kinds ...models.NotificationKind) func(models.Notification) bool {
	set := make(map[models.NotificationKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return func(n models.Notification) bool {
		_, ok := set[n.Kind]
		return ok
	}
}

// Log writes notifications to the structured log.
type Log struct {
	logger *zap.Logger
}

// NewLog builds a logging notifier.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Notify implements Notifier.
func (l *Log) Notify(_ context.Context, n models.Notification) {
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("title", n.Title),
		zap.String("message", n.Message),
	}
	if n.Level == models.LevelError {
		l.logger.Warn("notification", fields...)
		return
	}
	l.logger.Info("notification", fields...)
}
