// Package mail delivers alert messages over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"currencyalert/internal/config"
)

// ErrDelivery wraps any SMTP-level failure.
var ErrDelivery = errors.New("mail delivery failed")

// ErrInvalidAddress is returned for recipients not shaped like local@domain.tld.
var ErrInvalidAddress = errors.New("invalid email address")

// Sender delivers a plain-text message.
type Sender interface {
	Send(ctx context.Context, subject, body, to string) error
}

// client is the subset of *gomail.Client used for one delivery.
type client interface {
	DialWithContext(ctx context.Context) error
	Send(messages ...*gomail.Msg) error
	Close() error
}

type clientFactory func(cfg config.SMTPConfig) (client, error)

// SMTPSender sends each message in its own authenticated SMTP session.
type SMTPSender struct {
	cfg       config.SMTPConfig
	log       *zap.SugaredLogger
	newClient clientFactory
}

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates an SMTPSender for the configured relay.
func NewSMTPSender(cfg config.SMTPConfig, logger *zap.SugaredLogger) *SMTPSender {
	return &SMTPSender{cfg: cfg, log: logger, newClient: newSMTPClient}
}

// newSMTPClient builds a go-mail client with PLAIN auth. STARTTLS is
// mandatory unless disabled in config.
func newSMTPClient(cfg config.SMTPConfig) (client, error) {
	policy := gomail.TLSMandatory
	if !cfg.StartTLS {
		policy = gomail.NoTLS
	}
	c, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(policy),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTimeout(time.Duration(cfg.TimeoutSec)*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Send validates the recipient, then dials the relay and delivers one
// message. The connection is closed on every path once it has been opened.
func (s *SMTPSender) Send(ctx context.Context, subject, body, to string) error {
	masked, err := MaskAddress(to)
	if err != nil {
		s.log.Errorw("Invalid email address", "error", err)
		return err
	}
	if s.cfg.Username == "" || s.cfg.Password == "" {
		return fmt.Errorf("smtp: %w: GOOGLE_EMAIL and GOOGLE_APP_PASSWORD are required", config.ErrMissingCredential)
	}

	msg, err := buildMessage(s.cfg.Username, to, subject, body)
	if err != nil {
		return err
	}

	s.log.Infow("Sending email", "subject", subject, "to", masked, "relay", s.cfg.Addr())

	c, err := s.newClient(s.cfg)
	if err != nil {
		return fmt.Errorf("%w: smtp client for %s: %w", ErrDelivery, s.cfg.Addr(), err)
	}
	if err := c.DialWithContext(ctx); err != nil {
		return fmt.Errorf("%w: connect %s: %w", ErrDelivery, s.cfg.Addr(), err)
	}
	defer func() {
		if cErr := c.Close(); cErr != nil {
			s.log.Warnw("Failed to close SMTP connection", "relay", s.cfg.Addr(), "error", cErr)
		}
	}()

	if err := c.Send(msg); err != nil {
		s.log.Errorw("Error sending email", "to", masked, "error", err)
		return fmt.Errorf("%w: %w", ErrDelivery, err)
	}

	s.log.Infow("Email sent successfully", "to", masked)
	return nil
}

var headerBreaks = strings.NewReplacer("\r", "", "\n", "")

// buildMessage renders a plain-text message. Line breaks are removed from
// the subject so caller input cannot add headers.
func buildMessage(from, to, subject, body string) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %w", config.ErrMissingCredential, from, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	m.Subject(headerBreaks.Replace(subject))
	m.SetBodyString(gomail.TypeTextPlain, body)
	return m, nil
}
