package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"medical-booking-server/internal/config"
)

// Sender delivers a single HTML email.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	cfg    config.MailerConfig
	dialer *gomail.Dialer
}

// NewSMTPSender creates the SMTP sender; credentials are required.
func NewSMTPSender(cfg config.MailerConfig) (*SMTPSender, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("SMTP credentials not configured")
	}
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send composes and delivers the message.
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogSender only logs; used when SMTP is not configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a sender that writes to the log.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(to, subject, _ string) error {
	s.logger.Info("email not sent, SMTP disabled", zap.String("to", to), zap.String("subject", subject))
	return nil
}
