package app_test

import (
	"context"
	"testing"

	"autoescola-portal/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactSubmit(t *testing.T) {
	mailer := &recordingMailer{}
	service := app.NewContactService(mailer, "contato@autoescola.com.br", nil)

	err := service.Submit(context.Background(), app.ContactForm{
		Name:    "Joana Silva",
		Email:   "joana@example.com",
		Phone:   "11 98888-7777",
		Course:  "B",
		Message: "Gostaria de saber os horários do curso teórico.",
	})
	require.NoError(t, err)

	sent := mailer.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "contato@autoescola.com.br", sent[0].To)
	assert.Equal(t, "joana@example.com", sent[0].ReplyTo)
	assert.Contains(t, sent[0].Text, "horários")
}

func TestContactSubmitValidates(t *testing.T) {
	mailer := &recordingMailer{}
	service := app.NewContactService(mailer, "contato@autoescola.com.br", nil)

	err := service.Submit(context.Background(), app.ContactForm{Name: "J", Email: "not-an-email", Message: "oi"})
	assert.Error(t, err)
	assert.Empty(t, mailer.messages())
}
