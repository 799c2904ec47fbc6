package app

import (
	"context"
	"fmt"

	"autoescola-portal/internal/domain"
	"github.com/go-playground/validator/v10"
)

// ContactForm is the public "talk to us" form.
type ContactForm struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone" validate:"required,min=8,max=20"`
	Course  string `json:"course" validate:"omitempty,max=60"`
	Message string `json:"message" validate:"required,min=10,max=2000"`
}

type ContactService struct {
	mailer   Mailer
	inbox    string
	validate *validator.Validate
}

func NewContactService(mailer Mailer, inbox string, validate *validator.Validate) *ContactService {
	if validate == nil {
		validate = validator.New()
	}
	return &ContactService{mailer: mailer, inbox: inbox, validate: validate}
}

// Submit validates the form and forwards it to the school inbox with the sender as reply-to.
func (s *ContactService) Submit(ctx context.Context, form ContactForm) error {
	if err := s.validate.Struct(form); err != nil {
		return err
	}
	body := fmt.Sprintf("Name: %s\nE-mail: %s\nPhone: %s\nCourse: %s\n\n%s",
		form.Name, form.Email, form.Phone, form.Course, form.Message)
	if err := s.mailer.Send(ctx, domain.Email{
		To:      s.inbox,
		ReplyTo: form.Email,
		Subject: "Contact form: " + form.Name,
		Text:    body,
	}); err != nil {
		return fmt.Errorf("send contact e-mail: %w", err)
	}
	return nil
}
