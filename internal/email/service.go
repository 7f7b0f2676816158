package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"trade-journal/config"
	"trade-journal/internal/cache"
	"trade-journal/internal/database"
	"trade-journal/internal/logging"
)

// Service sends mail over SMTP. Credentials come from admin settings and
// fall back to the static configuration.
type Service struct {
	settings *cache.SettingsCache
	fallback config.SMTPConfig
	logger   *logging.Logger
}

// NewService creates a new email service
func NewService(settings *cache.SettingsCache, fallback config.SMTPConfig) *Service {
	return &Service{
		settings: settings,
		fallback: fallback,
		logger:   logging.WithComponent("email"),
	}
}

// SMTPConfig holds resolved SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// GetSMTPConfig resolves SMTP settings, preferring admin settings over the
// static configuration
func (s *Service) GetSMTPConfig(ctx context.Context) (*SMTPConfig, error) {
	stored, err := s.settings.GetAll(ctx)
	if err != nil {
		s.logger.Warn("Failed to load SMTP settings, using config fallback", "error", err)
		stored = map[string]string{}
	}

	pick := func(key, fallback string) string {
		if v := stored[key]; v != "" {
			return v
		}
		return fallback
	}

	cfg := &SMTPConfig{
		Host:     pick(database.SettingSMTPHost, s.fallback.Host),
		Port:     pick(database.SettingSMTPPort, s.fallback.Port),
		Username: pick(database.SettingSMTPUsername, s.fallback.Username),
		Password: pick(database.SettingSMTPPassword, s.fallback.Password),
		From:     pick(database.SettingSMTPFrom, s.fallback.From),
		FromName: pick(database.SettingSMTPFromName, s.fallback.FromName),
	}

	if cfg.Host == "" || cfg.Port == "" || cfg.From == "" {
		return nil, fmt.Errorf("SMTP not configured")
	}
	if cfg.FromName == "" {
		cfg.FromName = "Trade Journal"
	}
	return cfg, nil
}

// IsSMTPConfigured checks if SMTP is usable
func (s *Service) IsSMTPConfigured(ctx context.Context) bool {
	_, err := s.GetSMTPConfig(ctx)
	return err == nil
}

// Send delivers one HTML email
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	cfg, err := s.GetSMTPConfig(ctx)
	if err != nil {
		return err
	}
	return s.sendWithConfig(cfg, to, subject, body)
}

func (s *Service) sendWithConfig(cfg *SMTPConfig, to, subject, body string) error {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}

	message := []byte(
		"From: " + from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			body + "\r\n",
	)

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	addr := cfg.Host + ":" + cfg.Port

	s.logger.Debug("Sending email", "to", to, "host", cfg.Host, "port", cfg.Port)

	var err error
	if cfg.Port == "465" {
		err = s.sendTLS(addr, auth, cfg.From, []string{to}, message)
	} else {
		// STARTTLS (587) or plain (25)
		err = smtp.SendMail(addr, auth, cfg.From, []string{to}, message)
	}

	if err != nil {
		s.logger.Error("Failed to send email", "to", to, "error", err)
		return fmt.Errorf("SMTP error: %w", err)
	}

	s.logger.Info("Email sent", "to", to, "subject", subject)
	return nil
}

// sendTLS delivers over an implicit-TLS connection (port 465)
func (s *Service) sendTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	host := strings.Split(addr, ":")[0]
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, recipient := range to {
		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to add recipient: %w", err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// SendTestEmail sends a plain confirmation message so users can verify
// their SMTP setup
func (s *Service) SendTestEmail(ctx context.Context, to string) error {
	subject := "Trade Journal Test Email"
	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Test email</h2>
    <p>Your alert email settings are working.</p>
    <p style="color: #666; font-size: 12px;">Sent at %s</p>
</body>
</html>
`, time.Now().Format(time.RFC1123))
	return s.Send(ctx, to, subject, body)
}
