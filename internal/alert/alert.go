// Package alert delivers the security alert raised when the admin account
// is locked, and forwards contact form submissions to the site owner.
// Delivery is best effort: callers hand the message to a Notifier and never
// wait for the outcome.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 10 * time.Second

// Event describes one lock transition.
type Event struct {
	Email         string    `json:"email"`
	ClientAddress string    `json:"ip"`
	ClientAgent   string    `json:"user_agent"`
	Time          time.Time `json:"time"`
	LockUntil     time.Time `json:"lock_until"`
}

// Dispatcher sends an Event somewhere a human will see it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, ev Event) error

func (f DispatcherFunc) Dispatch(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Notifier runs dispatches in the background. Errors and panics from the
// dispatcher are logged and dropped.
type Notifier struct {
	dispatcher Dispatcher
	contacts   ContactDispatcher
	timeout    time.Duration
	logger     *slog.Logger

	wg sync.WaitGroup
}

// NewNotifier wraps d. A nil logger falls back to slog.Default and a
// non-positive timeout to DefaultTimeout. When d also implements
// ContactDispatcher it forwards contact submissions as well.
func NewNotifier(d Dispatcher, timeout time.Duration, logger *slog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{dispatcher: d, timeout: timeout, logger: logger}
	if cd, ok := d.(ContactDispatcher); ok {
		n.contacts = cd
	}
	return n
}

// WithContactDispatcher replaces the channel used by NotifyContact. Call it
// before the notifier is shared.
func (n *Notifier) WithContactDispatcher(cd ContactDispatcher) *Notifier {
	n.contacts = cd
	return n
}

// Notify schedules ev for delivery and returns immediately.
func (n *Notifier) Notify(ev Event) {
	if n == nil || n.dispatcher == nil {
		return
	}
	n.run("security alert", "SEC-ALRT", func(ctx context.Context) error {
		return n.dispatcher.Dispatch(ctx, ev)
	})
}

// NotifyContact forwards a contact submission to the site owner and returns
// immediately.
func (n *Notifier) NotifyContact(s Submission) {
	if n == nil || n.contacts == nil {
		return
	}
	n.run("contact notification", "CONTACT-FWD", func(ctx context.Context) error {
		return n.contacts.DispatchContact(ctx, s)
	})
}

func (n *Notifier) run(what, code string, fn func(ctx context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.logger.Error(what+" dispatcher panicked", "code", code, "panic", fmt.Sprint(r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			n.logger.Warn(what+" not delivered", "code", code, "error", err)
			return
		}
		n.logger.Debug(what + " delivered")
	}()
}

// Wait blocks until every scheduled alert has finished.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

// Close waits for in-flight alerts or until ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	if n == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain security alerts: %w", ctx.Err())
	}
}

// LogDispatcher writes the alert to the structured log. It is the default
// when no webhook or mail relay is configured.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) Dispatch(ctx context.Context, ev Event) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(ctx, slog.LevelWarn, "admin account locked after failed logins",
		slog.String("ip", ev.ClientAddress),
		slog.String("user_agent", ev.ClientAgent),
		slog.Time("time", ev.Time),
		slog.Time("lock_until", ev.LockUntil),
	)
	return nil
}
