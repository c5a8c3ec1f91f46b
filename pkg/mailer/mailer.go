// Package mailer sends outbound mail. Callers treat sends as
// fire-and-forget: a failure is reported but never fatal.
package mailer

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	resetURL string
}

func New(host string, port int, user, pass, from, resetURL string) *Mailer {
	return &Mailer{
		dialer:   gomail.NewDialer(host, port, user, pass),
		from:     from,
		resetURL: resetURL,
	}
}

// SendResetToken mails a password-reset link carrying the plaintext token.
func (m *Mailer) SendResetToken(to, token string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Password reset")
	msg.SetBody("text/plain", fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Visit %s?token=%s to choose a new password.\n\n"+
			"The link expires in one hour. If you did not request this, ignore this message.",
		m.resetURL, token))
	return m.dialer.DialAndSend(msg)
}
