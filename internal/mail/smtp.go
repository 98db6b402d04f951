// Package mail provides the SMTP fallback sender.
package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
	"github.com/tkmserwis/inspektor/internal/models"
)

// SMTPConfig holds SMTP connection configuration.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender implements Sender over plain SMTP, for deployments
// without a transactional API key.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(config *SMTPConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
		from:   config.From,
	}
}

// Send delivers the queued job over SMTP. Attachment content is
// decoded from the stored base64 into MIME parts.
func (s *SMTPSender) Send(ctx context.Context, item *models.QueueItem) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteSendFailed, "send cancelled", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", item.Recipient)
	msg.SetHeader("Subject", item.Subject)
	msg.SetBody("text/html", item.HTML)

	for _, att := range item.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrRemoteSendFailed,
				fmt.Sprintf("attachment %s is not valid base64", att.Filename), err)
		}
		msg.Attach(att.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}

	if err := s.dialer.DialAndSend(msg); err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteSendFailed, "smtp delivery failed", err)
	}
	return nil
}
