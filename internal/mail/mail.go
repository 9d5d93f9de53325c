package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/vitabid/marketplace/internal/logging"
)

type Mailer struct {
	addr string
	auth smtp.Auth
	from string
}

func NewMailer(addr, user, password, from string) *Mailer {
	var auth smtp.Auth
	if user != "" || password != "" {
		auth = smtp.PlainAuth("", user, password, host(addr))
	}
	return &Mailer{addr: addr, auth: auth, from: from}
}

// SendVerificationCode delivers a signup verification code. The code is valid
// for three minutes; the body says so.
func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string) error {
	l := logging.FromContext(ctx).With("component", "mailer", "to", to)

	body := fmt.Sprintf(`<div style="text-align:center;padding:24px">
<h1>Email Verification</h1>
<span style="font-size:30pt;font-weight:bold">%s</span>
<h2>This code is valid for 3 minutes.</h2>
</div>`, code)

	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: Email Verification\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" + body + "\r\n")

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
		l.Error("sendmail failed", "error", err)
		return err
	}
	l.Info("verification email sent")
	return nil
}

func host(addr string) string {
	if i := strings.Index(addr, ":"); i >= 0 {
		return addr[:i]
	}
	return addr
}
