package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"

	gomail "github.com/emersion/go-message/mail"
)

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email composes a plain-text MIME message and hands it to an SMTP relay.
type Email struct {
	cfg      EmailConfig
	sendMail sendMailFunc
}

func NewEmail(cfg EmailConfig) *Email {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &Email{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, alert Alert) error {
	if len(alert.Recipients) == 0 {
		return fmt.Errorf("email: no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := composeEmail(e.cfg.From, alert)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	if err := e.sendMail(addr, auth, e.cfg.From, alert.Recipients, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func composeEmail(from string, alert Alert) ([]byte, error) {
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("email from %q: %w", from, err)
	}
	to := make([]*gomail.Address, 0, len(alert.Recipients))
	for _, r := range alert.Recipients {
		a, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("email recipient %q: %w", r, err)
		}
		to = append(to, a)
	}

	var h gomail.Header
	h.SetDate(alert.At)
	h.SetAddressList("From", []*gomail.Address{sender})
	h.SetAddressList("To", to)
	h.SetSubject(alert.Subject())
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}

	var buf bytes.Buffer
	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}
	if _, err := w.Write([]byte(alert.Body())); err != nil {
		return nil, fmt.Errorf("write mail body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}
