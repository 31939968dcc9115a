package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shareMessage() Message {
	return Message{
		To:       []string{"a@example.com"},
		Subject:  "A file was shared with you",
		Template: TemplateFileShare,
		Data: map[string]any{
			"fileName":   "<report>.pdf",
			"shareUrl":   "https://vault.example.com/share/abc",
			"senderName": "Ann",
		},
	}
}

func TestRender(t *testing.T) {
	html, err := Render(shareMessage())
	require.NoError(t, err)
	assert.Contains(t, html, "Ann shared")
	assert.Contains(t, html, "&lt;report&gt;.pdf")
	assert.Contains(t, html, `href="https://vault.example.com/share/abc"`)

	_, err = Render(Message{Template: "nope"})
	require.ErrorIs(t, err, ErrUnknownTemplate)
}

func TestResendSender_Send(t *testing.T) {
	var got resendPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	s := NewResendSender(ResendConfig{APIKey: "key", APIURL: srv.URL + "/", From: "vault@example.com"}, srv.Client())
	require.NoError(t, s.Send(context.Background(), shareMessage()))

	assert.Equal(t, "vault@example.com", got.From)
	assert.Equal(t, []string{"a@example.com"}, got.To)
	assert.Contains(t, got.HTML, "Open file")
}

func TestResendSender_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewResendSender(ResendConfig{APIKey: "key", APIURL: srv.URL}, srv.Client())
	err := s.Send(context.Background(), shareMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")

	s = NewResendSender(ResendConfig{}, nil)
	require.ErrorIs(t, s.Send(context.Background(), shareMessage()), ErrAPIKeyRequired)
	assert.Equal(t, DefaultResendAPIURL, s.apiURL)
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(logging.Nop{})
	require.NoError(t, s.Send(context.Background(), shareMessage()))
	require.ErrorIs(t, s.Send(context.Background(), Message{Template: "x"}), ErrUnknownTemplate)
}
