package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/platform/crypto"
)

// Sender delivers workflow emails. Delivery is best-effort; callers treat
// failures as non-fatal.
type Sender interface {
	SendVerificationEmail(ctx context.Context, to, token string) error
	SendPasswordResetEmail(ctx context.Context, to, token string) error
}

// NewSender returns an SMTP-backed sender when SMTP is configured and a
// log-only sender otherwise, so development setups work without a relay.
func NewSender(cfg *config.Config, logger *zap.Logger) Sender {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST not set, emails will only be logged")
		return &logSender{logger: logger, cfg: cfg}
	}
	return &smtpSender{cfg: cfg, logger: logger}
}

type smtpSender struct {
	cfg    *config.Config
	logger *zap.Logger
}

func (s *smtpSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), token)
	body := fmt.Sprintf(
		"Welcome!\r\n\r\nPlease verify your email address by following this link:\r\n%s\r\n\r\nThe link expires in %s.\r\n",
		link, s.cfg.VerificationTokenExpiry,
	)
	return s.send(to, "Verify your email address", body)
}

func (s *smtpSender) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\r\n\r\nFollow this link to choose a new password:\r\n%s\r\n\r\nThe link expires in %s. If you did not request this, ignore this email.\r\n",
		link, s.cfg.PasswordResetTokenExpiry,
	)
	return s.send(to, "Reset your password", body)
}

func (s *smtpSender) send(to, subject, body string) error {
	messageID, err := crypto.GenerateSecureRandomString(16)
	if err != nil {
		return fmt.Errorf("failed to generate message id: %w", err)
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.cfg.EmailFrom),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		fmt.Sprintf("Date: %s", time.Now().Format(time.RFC1123Z)),
		fmt.Sprintf("Message-ID: <%s@%s>", messageID, s.cfg.SMTPHost),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
	}
	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	addr := s.cfg.SMTPHost + ":" + s.cfg.SMTPPort
	var auth smtp.Auth
	if s.cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.EmailFrom, []string{to}, []byte(message)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	s.logger.Debug("Email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// logSender writes the would-be email to the log instead of sending it.
type logSender struct {
	logger *zap.Logger
	cfg    *config.Config
}

func (s *logSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	s.logger.Info("Verification email (log only)",
		zap.String("to", to),
		zap.String("link", fmt.Sprintf("%s/verify-email?token=%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), token)),
	)
	return nil
}

func (s *logSender) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	s.logger.Info("Password reset email (log only)",
		zap.String("to", to),
		zap.String("link", fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.cfg.FrontendBaseURL, "/"), token)),
	)
	return nil
}
