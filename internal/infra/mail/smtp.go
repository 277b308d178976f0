package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/Korabi-dev/password-reset-adds/internal/core/port"
	"github.com/Korabi-dev/password-reset-adds/internal/infra/config"
)

const implicitTLSPort = 465

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers HTML mail through an authenticated SMTP relay. Port 465
// uses implicit TLS; any other port relies on STARTTLS negotiated by net/smtp.
type SMTPNotifier struct {
	cfg  config.MailSettings
	send sendFunc
}

// NewSMTPNotifier constructs a notifier for the configured relay.
func NewSMTPNotifier(cfg config.MailSettings) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg}
	if cfg.Port == implicitTLSPort {
		n.send = n.sendImplicitTLS
	} else {
		n.send = smtp.SendMail
	}
	return n
}

// Send delivers one message. The context is only checked before dialing.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, envelopeAddress(n.cfg.From), []string{to}, buildMessage(n.cfg.From, to, subject, html)); err != nil {
		return fmt.Errorf("send mail via %s: %w", addr, err)
	}
	return nil
}

func (n *SMTPNotifier) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.cfg.Host, MinVersion: tls.VersionTLS12})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write(msg); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, html string) []byte {
	return []byte(strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + mime.QEncoding.Encode("utf-8", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
		"",
		html,
	}, "\r\n"))
}

// envelopeAddress strips a display name so "Reset <no-reply@x.com>" yields the bare address.
func envelopeAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.LastIndex(from, ">"); end > start {
			return from[start+1 : end]
		}
	}
	return strings.TrimSpace(from)
}

var _ port.Notifier = (*SMTPNotifier)(nil)
