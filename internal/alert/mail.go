package alert

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// MailConfig addresses an SMTP relay. Auth is skipped when Username is empty.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// MailDispatcher emails the alert to the site owner.
type MailDispatcher struct {
	cfg  MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewMailDispatcher(cfg MailConfig) *MailDispatcher {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &MailDispatcher{cfg: cfg, send: smtp.SendMail}
}

func (d *MailDispatcher) Dispatch(ctx context.Context, ev Event) error {
	if err := d.deliver(ctx, func(from, to string) []byte { return buildAlertMessage(from, to, ev) }); err != nil {
		return fmt.Errorf("send mail alert: %w", err)
	}
	return nil
}

// deliver sends the message built for the configured sender and recipient.
func (d *MailDispatcher) deliver(ctx context.Context, build func(from, to string) []byte) error {
	if d.cfg.Host == "" || d.cfg.To == "" {
		return fmt.Errorf("relay host and recipient are required")
	}

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}
	addr := net.JoinHostPort(d.cfg.Host, strconv.Itoa(d.cfg.Port))
	from := d.cfg.From
	if from == "" {
		from = d.cfg.To
	}

	// smtp.SendMail has no context support; run it aside so ctx still bounds
	// how long the notifier goroutine waits.
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.send(addr, auth, from, []string{d.cfg.To}, build(from, d.cfg.To))
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildAlertMessage(from, to string, ev Event) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: Portfolio Security <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: Admin account locked after failed login attempts\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n", ev.Time.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString("Your admin account has been temporarily locked due to repeated failed login attempts.\r\n\r\n")
	fmt.Fprintf(&b, "Time:        %s\r\n", ev.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "IP address:  %s\r\n", ev.ClientAddress)
	fmt.Fprintf(&b, "Device:      %s\r\n", ev.ClientAgent)
	fmt.Fprintf(&b, "Locked until %s\r\n\r\n", ev.LockUntil.UTC().Format(time.RFC3339))
	b.WriteString("If this was not you, consider changing your admin password.\r\n")
	return b.Bytes()
}
