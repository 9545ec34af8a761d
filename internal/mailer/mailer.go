package mailer

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Attachment is one file carried by a mail: raw bytes plus the filename the
// recipient sees.
type Attachment struct {
	Filename string
	Content  []byte
}

// Sender is what the notification worker depends on; satisfied by Mailer
// and by fakes in tests.
type Sender interface {
	Send(to, subject, body string, attachments []Attachment) error
}

// Mailer sends transactional mail over SMTP. Delivery is best-effort by
// contract: callers log failures and move on, the registrant already got
// their HTTP response.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	log    *zerolog.Logger
}

func New(host string, port int, username, password, from string, log *zerolog.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		log:    log,
	}
}

func (m *Mailer) Send(to, subject, body string, attachments []Attachment) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	for _, a := range attachments {
		content := a.Content
		msg.Attach(a.Filename, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.Warn().Err(err).Str("to", to).Str("subject", subject).Msg("failed to send email")
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Info().Str("to", to).Str("subject", subject).Int("attachments", len(attachments)).Msg("email sent")
	return nil
}
