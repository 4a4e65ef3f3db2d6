package notify

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

const sendTimeout = 10 * time.Second

// MessageSender is the part of the FCM client the push notifier uses.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NewFirebaseSender initializes a Firebase app from a service account file and returns its
// messaging client.
func NewFirebaseSender(ctx context.Context, credentialsPath string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase messaging: %w", err)
	}
	return client, nil
}

// Push publishes notifications to an FCM topic the kitchen devices subscribe to.
type Push struct {
	sender MessageSender
	topic  string
	logger *zap.Logger
	done   func(messageID string, err error)
}

// NewPush builds a push notifier for the topic.
func NewPush(sender MessageSender, topic string, logger *zap.Logger) *Push {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Push{sender: sender, topic: topic, logger: logger}
}

// Notify sends in the background so the caller never waits on FCM.
func (p *Push) Notify(ctx context.Context, n models.Notification) {
	msg := &messaging.Message{
		Topic: p.topic,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
		Data: pushData(n),
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(sendCtx, sendTimeout)
		defer cancel()

		id, err := p.sender.Send(sendCtx, msg)
		if err != nil {
			p.logger.Warn("push notification failed", zap.String("topic", p.topic), zap.String("kind", string(n.Kind)), zap.Error(err))
		} else {
			p.logger.Debug("push notification sent", zap.String("topic", p.topic), zap.String("message_id", id))
		}
		if p.done != nil {
			p.done(id, err)
		}
	}()
}

func pushData(n models.Notification) map[string]string {
	data := make(map[string]string, len(n.Data)+2)
	for k, v := range n.Data {
		data[k] = v
	}
	data["kind"] = string(n.Kind)
	data["level"] = string(n.Level)
	return data
}
