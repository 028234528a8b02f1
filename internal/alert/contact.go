package alert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"
)

const eventContactSubmitted = "contact_submitted"

// Submission is a contact form message forwarded to the site owner.
type Submission struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Subject string    `json:"subject"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ContactDispatcher forwards a Submission somewhere the owner will read it.
// LogDispatcher, WebhookDispatcher and MailDispatcher all implement it.
type ContactDispatcher interface {
	DispatchContact(ctx context.Context, s Submission) error
}

// ContactDispatcherFunc adapts a function to ContactDispatcher.
type ContactDispatcherFunc func(ctx context.Context, s Submission) error

func (f ContactDispatcherFunc) DispatchContact(ctx context.Context, s Submission) error {
	return f(ctx, s)
}

func (d LogDispatcher) DispatchContact(ctx context.Context, s Submission) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "contact form submitted",
		slog.String("contact_id", s.ID),
		slog.String("from", s.Email),
		slog.String("subject", s.Subject),
	)
	return nil
}

func (d *WebhookDispatcher) DispatchContact(ctx context.Context, s Submission) error {
	return d.post(ctx, eventContactSubmitted, s.Time, s)
}

// DispatchContact mails the submission to the owner with Reply-To set to the
// visitor, so answering goes straight back to them.
func (d *MailDispatcher) DispatchContact(ctx context.Context, s Submission) error {
	if err := d.deliver(ctx, func(from, to string) []byte { return buildContactMessage(from, to, s) }); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	return nil
}

func buildContactMessage(from, to string, s Submission) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: Portfolio Contact <%s>\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Reply-To: %s\r\n", headerSafe(s.Email))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "[Portfolio] "+headerSafe(s.Subject)))
	fmt.Fprintf(&b, "Date: %s\r\n", s.Time.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Name:    %s\r\n", s.Name)
	fmt.Fprintf(&b, "Email:   %s\r\n", s.Email)
	fmt.Fprintf(&b, "Subject: %s\r\n\r\n", s.Subject)
	b.WriteString(strings.ReplaceAll(s.Message, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}

// headerSafe strips line breaks so visitor input cannot add headers.
func headerSafe(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
