package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"autoescola-portal/internal/domain"
	"autoescola-portal/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendgridMailerPostsV3Mail(t *testing.T) {
	var (
		auth string
		body map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	mailer := NewSendgridMailer("sg-key", srv.URL, "Autoescola", "noreply@autoescola.com.br")
	err := mailer.Send(context.Background(), domain.Email{
		To:      "ana@example.com",
		ToName:  "Ana",
		ReplyTo: "joana@example.com",
		Subject: "Aula agendada",
		Text:    "Sua aula foi agendada",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sg-key", auth)
	personalizations := body["personalizations"].([]interface{})
	first := personalizations[0].(map[string]interface{})
	assert.Equal(t, "[Autoescola] Aula agendada", first["subject"])
	assert.Equal(t, "joana@example.com", body["reply_to"].(map[string]interface{})["email"])
}

func TestSendgridMailerReportsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	err := NewSendgridMailer("bad", srv.URL, "Autoescola", "noreply@autoescola.com.br").
		Send(context.Background(), domain.Email{To: "ana@example.com", Subject: "x", Text: "y"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestConsoleMailerLogs(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithOutput("test", "info", &buf)

	err := NewConsoleMailer(l.Entry()).Send(context.Background(), domain.Email{To: "ana@example.com", Subject: "Oi", Text: "corpo"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"ana@example.com"`)
	assert.Contains(t, buf.String(), `"message":"corpo"`)
}
