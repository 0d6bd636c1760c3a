// Package mail delivers exported files by SMTP.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strconv"

	"carteira/internal/export"
	"carteira/internal/log"

	"github.com/jordan-wright/email"
)

var ErrNoRecipients = errors.New("no recipients")

// Config holds the SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendFunc delivers a composed message. The default sends through smtp.SendMail.
type SendFunc func(addr string, auth smtp.Auth, e *email.Email) error

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    Config
	send   SendFunc
	logger *log.Logger
}

type Option func(*Sender)

// WithSendFunc replaces the transport, mainly for tests.
func WithSendFunc(f SendFunc) Option {
	return func(s *Sender) { s.send = f }
}

// NewSender creates a new email sender
func NewSender(cfg Config, logger *log.Logger, opts ...Option) *Sender {
	if logger == nil {
		logger = log.Discard()
	}
	s := &Sender{
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentMail),
		send: func(addr string, auth smtp.Auth, e *email.Email) error {
			return e.Send(addr, auth)
		},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Message is a text mail with exported files attached.
type Message struct {
	To      []string
	Subject string
	Body    string
	Files   []export.File
}

// Send composes and delivers msg.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = s.cfg.From
	e.To = msg.To
	e.Subject = msg.Subject
	e.Text = []byte(msg.Body)
	for _, f := range msg.Files {
		if _, err := e.Attach(bytes.NewReader(f.Content), f.Name, export.ContentType); err != nil {
			return fmt.Errorf("attach %s: %w", f.Name, err)
		}
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	if err := s.send(addr, auth, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to send email",
			log.FieldError, err,
			"subject", msg.Subject,
			"recipients", len(msg.To))
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.InfoContext(ctx, "Email sent",
		"subject", msg.Subject,
		"recipients", len(msg.To),
		"attachments", len(msg.Files))
	return nil
}
