package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	config "github.com/anjiri1684/teacherin/configs"
	"github.com/anjiri1684/teacherin/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMailer(t *testing.T, handler http.HandlerFunc) *BrevoMailer {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	m := NewBrevoMailer(config.EmailConfig{BrevoAPIKey: "key-123", Sender: "no-reply@teacherin.test"}, logging.Nop())
	require.NotNil(t, m)
	m.endpoint = srv.URL
	return m
}

func TestBrevoMailerSend(t *testing.T) {
	var got brevoPayload
	m := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<1@brevo>"}`))
	})

	err := m.Send(context.Background(), "siti@example.com", "", "Hello", "<p>hi</p>")
	require.NoError(t, err)

	require.Len(t, got.To, 1)
	assert.Equal(t, "siti", got.To[0].Name, "name falls back to the mailbox")
	assert.Equal(t, "Teacherin", got.Sender.Name)
	assert.Equal(t, "Hello", got.Subject)
}

func TestBrevoMailerErrors(t *testing.T) {
	m := newTestMailer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized"}`))
	})

	assert.Error(t, m.Send(context.Background(), "not-an-email", "", "s", "b"))
	err := m.Send(context.Background(), "a@b.c", "A", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
}

func TestNewBrevoMailerUnconfigured(t *testing.T) {
	assert.Nil(t, NewBrevoMailer(config.EmailConfig{}, logging.Nop()))
}
