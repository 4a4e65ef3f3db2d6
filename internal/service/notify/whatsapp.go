package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
	client "github.com/mamadbah2/comedor/pkg/clients/whatsapp"
)

// WhatsApp forwards notifications as text messages to the manager's phone.
type WhatsApp struct {
	client client.Client
	to     string
	logger *zap.Logger
	done   func(err error)
}

// NewWhatsApp builds a WhatsApp notifier.
func NewWhatsApp(c client.Client, to string, logger *zap.Logger) *WhatsApp {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WhatsApp{client: c, to: to, logger: logger}
}

// Notify sends in the background.
func (w *WhatsApp) Notify(ctx context.Context, n models.Notification) {
	body := fmt.Sprintf("*%s*\n%s", n.Title, n.Message)
	sendCtx := context.WithoutCancel(ctx)

	go func() {
		sendCtx, cancel := context.WithTimeout(sendCtx, sendTimeout)
		defer cancel()

		_, err := w.client.SendTextMessage(sendCtx, client.SendTextMessageRequest{To: w.to, Body: body})
		if err != nil {
			w.logger.Warn("whatsapp notification failed", zap.String("kind", string(n.Kind)), zap.Error(err))
		}
		if w.done != nil {
			w.done(err)
		}
	}()
}
