package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// ErrDisabled is returned by Send when email delivery is turned off.
var ErrDisabled = errors.New("email delivery disabled")

// Message is one outgoing email rendered from a named template.
type Message struct {
	To       string
	ReplyTo  string
	Subject  string
	Template string
	Data     any
}

// Service renders templates and sends them through Resend.
type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// NewService creates a new email service instance
func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// Enabled reports whether messages are actually delivered.
func (s *Service) Enabled() bool {
	return s.config.Enabled
}

// Send renders msg and delivers it. It returns ErrDisabled without
// contacting Resend when delivery is turned off.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if err := validateEmailAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}
	if msg.ReplyTo != "" {
		if err := validateEmailAddress(msg.ReplyTo); err != nil {
			return fmt.Errorf("invalid reply-to email: %w", err)
		}
	}

	htmlBody, err := s.renderTemplate(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Msg("email service disabled, skipping delivery")
		return ErrDisabled
	}

	return s.sendViaResend(ctx, msg.To, msg.ReplyTo, msg.Subject, htmlBody)
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}

// renderTemplate renders an email template with the given data
func (s *Service) renderTemplate(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
