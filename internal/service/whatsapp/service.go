// Package whatsapp answers manager queries sent to the restaurant's WhatsApp number.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/config"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/commands"
	client "github.com/mamadbah2/comedor/pkg/clients/whatsapp"
)

const (
	replyTimeout   = 10 * time.Second
	unknownCommand = "Comando no reconocido.\n\n" + commands.HelpText
	commandFailed  = "No se pudo generar la respuesta. Intenta de nuevo en unos minutos."
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	seen       *SeenMessages
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, c client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{
		cfg:        cfg,
		client:     c,
		dispatcher: dispatcher,
		seen:       NewSeenMessages(0),
		logger:     logger,
	}
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}
	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}
	if s.cfg.VerifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

// HandleWebhook answers every inbound message of the payload. Status callbacks are ignored.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var errs []error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if !s.seen.MarkFirst(msg.ID) {
					s.logger.Debug("duplicate webhook message skipped", zap.String("message_id", msg.ID))
					continue
				}
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.seen.Forget(msg.ID)
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					errs = append(errs, err)
				}
			}
		}
	}

	return errors.Join(errs...)
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	if !s.fromManager(msg.From) {
		s.logger.Warn("ignoring message from non-manager sender", zap.String("from", msg.From), zap.String("message_id", msg.ID))
		return nil
	}

	text := msg.CommandText()
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return nil
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	switch {
	case errors.Is(err, commands.ErrUnsupportedCommand), errors.Is(err, commands.ErrInvalidArguments):
		reply = unknownCommand
	case err != nil:
		s.logger.Warn("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		reply = commandFailed
	}

	return s.send(ctx, msg.From, reply, false)
}

// fromManager reports whether sender may query the business. Every sender may when no
// manager number is configured.
func (s *MetaWhatsAppService) fromManager(sender string) bool {
	manager := strings.TrimPrefix(strings.TrimSpace(s.cfg.ManagerID), "+")
	if manager == "" {
		return true
	}
	return strings.TrimPrefix(sender, "+") == manager
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, preview bool) error {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{
		To:         to,
		Body:       body,
		PreviewURL: preview,
	})
	if err != nil {
		return fmt.Errorf("reply to %s: %w", to, err)
	}
	return nil
}
