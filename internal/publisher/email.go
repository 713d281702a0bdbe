package publisher

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailPublisher sends the report as an HTML email via SMTP.
type EmailPublisher struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	send     sendMailFunc
}

func NewEmailPublisher(host string, port int, username, password, from string, to []string) *EmailPublisher {
	return &EmailPublisher{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		send:     smtp.SendMail,
	}
}

func (p *EmailPublisher) Name() string { return "email" }

func (p *EmailPublisher) Publish(_ context.Context, report *digest.Report) (string, error) {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	if err := p.send(addr, auth, p.from, p.to, p.buildMessage(report)); err != nil {
		return "", fmt.Errorf("email: failed to send: %w", err)
	}
	return "", nil
}

func (p *EmailPublisher) buildMessage(report *digest.Report) []byte {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		p.from,
		strings.Join(p.to, ","),
		mime.QEncoding.Encode("utf-8", report.Title()),
		report.HTMLPage(),
	)
	return []byte(msg)
}
