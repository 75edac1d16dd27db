package mailer

import (
	"fmt"

	"github.com/rs/zerolog"
	gomail "gopkg.in/gomail.v2"

	"github.com/NeonAnubis/afrimail-backend/internal/config"
)

// Mailer delivers OTP and notification mail over SMTP. Delivery is
// fire-and-forget: failures are logged, never surfaced to the caller.
type Mailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
	logger   zerolog.Logger
	enabled  bool
}

func New(cfg *config.Config, logger zerolog.Logger) *Mailer {
	m := &Mailer{
		from:     cfg.SMTPFrom,
		fromName: cfg.SMTPFromName,
		logger:   logger,
		enabled:  cfg.SMTPHost != "" && cfg.SMTPFrom != "",
	}
	if m.enabled {
		m.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return m
}

// Enabled reports whether SMTP delivery is configured.
func (m *Mailer) Enabled() bool {
	return m.enabled
}

// SendOTP mails a one-time code for recovery contact confirmation.
func (m *Mailer) SendOTP(to, code string) {
	subject := "Your Afrimail verification code"
	body := fmt.Sprintf("Your verification code is: %s\n\nIf you did not request this, you can ignore this message.", code)
	m.send(to, subject, body)
}

// SendNotice mails a plain-text notification.
func (m *Mailer) SendNotice(to, subject, body string) {
	m.send(to, subject, body)
}

func (m *Mailer) send(to, subject, body string) {
	if !m.enabled {
		m.logger.Debug().Str("to", to).Str("subject", subject).Msg("smtp not configured, dropping mail")
		return
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, m.fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	go func() {
		if err := m.dialer.DialAndSend(msg); err != nil {
			m.logger.Error().Err(err).Str("to", to).Str("subject", subject).Msg("failed to send mail")
			return
		}
		m.logger.Info().Str("to", to).Str("subject", subject).Msg("mail sent")
	}()
}
