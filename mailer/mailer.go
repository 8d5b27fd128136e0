// Package mailer delivers one-time codes by email.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	gosmtp "net/smtp"
	"strings"
	"time"

	"inkpost/config"
)

const otpSubject = "Your inkpost verification code"

// SMTP sends mail through a relay. Port 465 uses implicit TLS; any other
// port upgrades with STARTTLS when the server offers it.
type SMTP struct {
	cfg  config.SMTPConfig
	from mail.Address
	now  func() time.Time
}

func NewSMTP(cfg config.SMTPConfig) *SMTP {
	return &SMTP{
		cfg:  cfg,
		from: mail.Address{Name: "inkpost", Address: cfg.From},
		now:  time.Now,
	}
}

func (s *SMTP) SendOTP(ctx context.Context, to, code string) error {
	msg := buildMessage(s.from, to, otpSubject, otpBody(code), s.now())
	if err := s.send(ctx, to, msg); err != nil {
		return err
	}
	slog.InfoContext(ctx, "otp email sent", "to", to)
	return nil
}

func (s *SMTP) send(ctx context.Context, to, msg string) error {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	tlsConfig := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := gosmtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("creating smtp client: %w", err)
	}
	defer client.Close()

	if s.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starting TLS: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if err := client.Auth(gosmtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err := client.Mail(s.from.Address); err != nil {
		return fmt.Errorf("MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("RCPT TO %s: %w", to, err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing data: %w", err)
	}
	return client.Quit()
}

func otpBody(code string) string {
	return fmt.Sprintf("Your one-time code is %s.\r\n\r\nIf you did not request it, ignore this email.\r\n", code)
}

func buildMessage(from mail.Address, to, subject, body string, at time.Time) string {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", at.UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

// Log writes codes to the logger instead of sending them. For local
// development only.
type Log struct {
	Logger *slog.Logger
}

func (l Log) SendOTP(ctx context.Context, to, code string) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "otp email (not sent)", "to", to, "otp", code)
	return nil
}
