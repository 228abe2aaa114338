package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"epiwatch/internal/alert"
	"epiwatch/internal/logger"
)

const defaultMailTimeout = 30 * time.Second

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// Timeout bounds the whole SMTP conversation. 0 means 30s.
	Timeout time.Duration
	// TLSConfig overrides the client TLS settings. ServerName defaults to Host.
	TLSConfig *tls.Config
}

// SendFunc hands a complete RFC 5322 message to a mail server.
type SendFunc func(ctx context.Context, cfg MailConfig, msg []byte) error

// Mailer sends the digest over SMTP with implicit TLS.
type Mailer struct {
	cfg  MailConfig
	send SendFunc
	log  logger.Logger
}

// NewMailer returns a Mailer. A nil send uses SMTP over TLS.
func NewMailer(cfg MailConfig, send SendFunc, log logger.Logger) *Mailer {
	if send == nil {
		send = sendTLS
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Mailer{cfg: cfg, send: send, log: log}
}

func (m *Mailer) Notify(ctx context.Context, set alert.AlertSet) error {
	if set.Empty() {
		return nil
	}
	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultMailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := buildMessage(m.cfg.From, m.cfg.To, Subject, Digest(set.Alerts))
	if err := m.send(ctx, m.cfg, msg); err != nil {
		m.log.Error("Alert email failed",
			logger.String("run_id", set.RunID),
			logger.String("host", m.cfg.Host),
			logger.Error(err))
		return fmt.Errorf("send alert email: %w", err)
	}
	m.log.Info("Alert email sent",
		logger.String("run_id", set.RunID),
		logger.Int("alerts", len(set.Alerts)),
		logger.Int("recipients", len(m.cfg.To)))
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

func sendTLS(ctx context.Context, cfg MailConfig, msg []byte) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.TLSConfig != nil {
		tlsCfg = cfg.TLSConfig.Clone()
	}
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = cfg.Host
	}
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 15 * time.Second},
		Config:    tlsCfg,
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultMailTimeout)
	}
	_ = conn.SetDeadline(deadline)
	// Unblock a stalled read if ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("smtp mail: %w", err)
	}
	for _, rcpt := range cfg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return c.Quit()
}
