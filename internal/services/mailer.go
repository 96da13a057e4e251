package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/dossier-backend/internal/platform/logger"
	"github.com/yungbote/dossier-backend/internal/platform/sendgrid"
)

// Mailer delivers sign-in links.
type Mailer interface {
	SendSignInLink(ctx context.Context, email, link string) error
}

// ErrAddressRejected is returned by a Mailer when the provider refuses the recipient.
var ErrAddressRejected = errors.New("address rejected by mail provider")

type sendgridMailer struct {
	client sendgrid.Client
	from   sendgrid.EmailAddress
}

func NewSendGridMailer(client sendgrid.Client, fromEmail, fromName string) Mailer {
	return &sendgridMailer{client: client, from: sendgrid.EmailAddress{Email: fromEmail, Name: fromName}}
}

func (m *sendgridMailer) SendSignInLink(ctx context.Context, email, link string) error {
	_, err := m.client.Send(ctx, sendgrid.SendEmailRequest{
		From:       m.from,
		To:         []sendgrid.EmailAddress{{Email: email}},
		Subject:    "Your sign-in link",
		Text:       "Sign in to Dossiers:\n\n" + link + "\n\nThe link expires shortly and works once.",
		HTML:       fmt.Sprintf(`<p>Sign in to Dossiers:</p><p><a href="%s">Sign in</a></p><p>The link expires shortly and works once.</p>`, link),
		Categories: []string{"sign-in"},
	})
	if err == nil {
		return nil
	}
	var httpErr *sendgrid.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 && httpErr.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("%w: %v", ErrAddressRejected, err)
	}
	return err
}

// logMailer writes links to the log. Used when no mail provider is configured.
type logMailer struct {
	log *logger.Logger
}

func NewLogMailer(log *logger.Logger) Mailer {
	return &logMailer{log: log.With("service", "LogMailer")}
}

func (m *logMailer) SendSignInLink(_ context.Context, email, link string) error {
	m.log.Info("Sign-in link issued", "email", email, "link", link)
	return nil
}
