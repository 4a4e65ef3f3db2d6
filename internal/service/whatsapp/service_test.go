package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/comedor/internal/config"
	"github.com/mamadbah2/comedor/internal/domain/models"
	"github.com/mamadbah2/comedor/internal/service/commands"
	client "github.com/mamadbah2/comedor/pkg/clients/whatsapp"
)

type sentBox struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (b *sentBox) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	b.sent = append(b.sent, req)
	return &client.SendTextMessageResponse{}, b.err
}

type dispatchFunc func(cmd models.Command) (string, error)

func (f dispatchFunc) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	return f(cmd)
}

func payloadWith(msgs ...models.InboundMessage) models.WebhookPayload {
	return models.WebhookPayload{Entry: []models.WebhookEntry{{
		Changes: []models.WebhookChange{{Value: models.WebhookValue{Messages: msgs}}},
	}}}
}

func textMessage(id, body string) models.InboundMessage {
	return models.InboundMessage{ID: id, From: "59170000000", Type: "text", Text: &models.TextContent{Body: body}}
}

func TestVerifyWebhookToken(t *testing.T) {
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "secret"}, &sentBox{}, nil, nil)

	challenge, err := svc.VerifyWebhookToken("subscribe", "secret", "42")
	require.NoError(t, err)
	assert.Equal(t, "42", challenge)

	_, err = svc.VerifyWebhookToken("subscribe", "wrong", "42")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("unsubscribe", "secret", "42")
	assert.Error(t, err)
	_, err = svc.VerifyWebhookToken("", "", "")
	assert.Error(t, err)
}

func TestHandleWebhookRepliesWithCommandOutput(t *testing.T) {
	box := &sentBox{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, box, dispatchFunc(func(cmd models.Command) (string, error) {
		return "reply:" + string(cmd.Type), nil
	}), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), payloadWith(textMessage("m1", "/caja"))))
	require.Len(t, box.sent, 1)
	assert.Equal(t, "59170000000", box.sent[0].To)
	assert.Equal(t, "reply:caja", box.sent[0].Body)
}

func TestHandleWebhookSkipsRedeliveries(t *testing.T) {
	box := &sentBox{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, box, dispatchFunc(func(models.Command) (string, error) { return "ok", nil }), nil)

	payload := payloadWith(textMessage("m1", "/hoy"))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload))
	require.NoError(t, svc.HandleWebhook(context.Background(), payload))
	assert.Len(t, box.sent, 1)
}

func TestHandleWebhookUnknownAndFailingCommands(t *testing.T) {
	box := &sentBox{}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, box, dispatchFunc(func(cmd models.Command) (string, error) {
		if cmd.Type == models.CommandUnknown {
			return "", commands.ErrUnsupportedCommand
		}
		return "", errors.New("mongo down")
	}), nil)

	require.NoError(t, svc.HandleWebhook(context.Background(), payloadWith(
		textMessage("m1", "hola"),
		textMessage("m2", "/hoy"),
		models.InboundMessage{ID: "m3", Type: "image"},
	)))
	require.Len(t, box.sent, 2)
	assert.Equal(t, unknownCommand, box.sent[0].Body)
	assert.Equal(t, commandFailed, box.sent[1].Body)
}

func TestHandleWebhookReportsSendFailures(t *testing.T) {
	box := &sentBox{err: errors.New("rate limited")}
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{}, box, dispatchFunc(func(models.Command) (string, error) { return "ok", nil }), nil)

	payload := payloadWith(textMessage("m1", "/hoy"))
	assert.Error(t, svc.HandleWebhook(context.Background(), payload))

	box.err = nil
	require.NoError(t, svc.HandleWebhook(context.Background(), payload))
	assert.Len(t, box.sent, 2, "a failed message is retried on redelivery")
}

func TestSeenMessagesExpire(t *testing.T) {
	seen := NewSeenMessages(time.Minute)
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	seen.now = func() time.Time { return now }

	assert.True(t, seen.MarkFirst("a"))
	assert.False(t, seen.MarkFirst("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, seen.MarkFirst("a"))
	assert.True(t, seen.MarkFirst(""))
}

func TestHandleWebhookAnswersOnlyTheManager(t *testing.T) {
	box := &sentBox{}
	asked := 0
	svc := NewMetaWhatsAppService(config.WhatsAppConfig{ManagerID: "+59170000000"}, box, dispatchFunc(func(models.Command) (string, error) {
		asked++
		return "Capital: Bs 100,00", nil
	}), nil)

	stranger := models.InboundMessage{ID: "m1", From: "59179999999", Type: "text", Text: &models.TextContent{Body: "/caja"}}
	require.NoError(t, svc.HandleWebhook(context.Background(), payloadWith(stranger)))
	assert.Empty(t, box.sent)
	assert.Zero(t, asked)

	require.NoError(t, svc.HandleWebhook(context.Background(), payloadWith(textMessage("m2", "/caja"))))
	require.Len(t, box.sent, 1)
	assert.Equal(t, "59170000000", box.sent[0].To)
	assert.Equal(t, 1, asked)
}
