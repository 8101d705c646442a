package utils

import (
	"gopkg.in/gomail.v2"

	"github.com/meinhoongagan/wheel-refurb/config"
)

// Mailer sends HTML mail through the configured SMTP server.
type Mailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{
		from:   cfg.User,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (m *Mailer) SendEmail(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	return m.dialer.DialAndSend(msg)
}
