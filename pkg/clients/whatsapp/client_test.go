package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/comedor/internal/config"
)

func TestSendTextMessage(t *testing.T) {
	var got textPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v20.0/12345/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL + "/", APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "12345"})

	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "59170000000", Body: "Caja: Bs. 10.00"})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)
	assert.Equal(t, "59170000000", got.To)
	assert.Equal(t, "Caja: Bs. 10.00", got.Text.Body)
}

func TestSendTextMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid parameter","code":100,"fbtrace_id":"abc"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{BaseURL: srv.URL, APIVersion: "v20.0", AccessToken: "secret", PhoneNumberID: "12345"})

	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "1", Body: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=100")
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestSendTextMessageRequiresRecipient(t *testing.T) {
	c := NewClient(config.WhatsAppConfig{BaseURL: "http://unused", APIVersion: "v20.0"})
	_, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{Body: "x"})
	assert.Error(t, err)
}
