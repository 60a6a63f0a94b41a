package contact

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/email"
	"github.com/comilla/site-backend/internal/sanitize"
)

var (
	ErrMissingField   = errors.New("name, email, subject and message are required")
	ErrDeliveryFailed = errors.New("message delivery failed")
)

const templateName = "contact.html"

// Message is one contact-form submission.
type Message struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Sender delivers rendered email. *email.Service satisfies it.
type Sender interface {
	Send(ctx context.Context, msg email.Message) error
}

// Service forwards contact-form submissions to the site owner's inbox.
type Service struct {
	sender    Sender
	recipient string
	subject   string
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(sender Sender, recipient, subject string, logger zerolog.Logger) *Service {
	return &Service{
		sender:    sender,
		recipient: recipient,
		subject:   subject,
		now:       time.Now,
		logger:    logger.With().Str("component", "contact").Logger(),
	}
}

type templateData struct {
	Name       string
	Email      string
	Subject    string
	Message    string
	ReceivedAt string
}

// Notify strips markup from every field and emails the submission.
// When delivery is disabled the submission is logged and accepted.
func (s *Service) Notify(ctx context.Context, msg Message) error {
	sanitize.Fields(&msg.Name, &msg.Email, &msg.Subject, &msg.Message)
	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "" {
		return ErrMissingField
	}

	subject := s.subject
	if subject == "" {
		subject = msg.Subject
	}

	err := s.sender.Send(ctx, email.Message{
		To:       s.recipient,
		ReplyTo:  replyTo(msg.Email),
		Subject:  fmt.Sprintf("%s: %s", subject, msg.Subject),
		Template: templateName,
		Data: templateData{
			Name:       msg.Name,
			Email:      msg.Email,
			Subject:    msg.Subject,
			Message:    msg.Message,
			ReceivedAt: s.now().UTC().Format(time.RFC1123),
		},
	})
	switch {
	case err == nil:
		s.logger.Info().Str("from", msg.Email).Msg("contact message forwarded")
		return nil
	case errors.Is(err, email.ErrDisabled):
		s.logger.Info().
			Str("from", msg.Email).
			Str("subject", msg.Subject).
			Msg("contact message accepted without delivery")
		return nil
	default:
		s.logger.Error().Err(err).Str("from", msg.Email).Msg("contact message delivery failed")
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
}

// replyTo drops visitor addresses that would not survive header validation,
// so a typo in the form does not block delivery.
func replyTo(address string) string {
	addr, err := mail.ParseAddress(address)
	if err != nil || strings.ContainsAny(addr.Address, "\r\n") {
		return ""
	}
	return addr.Address
}
