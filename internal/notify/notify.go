// Package notify defines the outbound notification and email collaborators.
// Delivery is best-effort: callers dispatch in a goroutine and never block a
// response on the result. Real transports (push gateway, SMTP) live outside
// this service; the implementations here log what would be sent.
package notify

import (
	"github.com/rs/zerolog"
)

// Notifier delivers a push notification to an account.
type Notifier interface {
	Push(recipientID, title, body string) error
}

// Mailer delivers an email.
type Mailer interface {
	Send(to, subject, body string) error
}

// LogNotifier writes notifications to the log instead of a push gateway.
type LogNotifier struct {
	Log zerolog.Logger
}

// Push implements Notifier.
func (n LogNotifier) Push(recipientID, title, body string) error {
	n.Log.Info().
		Str("recipient", recipientID).
		Str("title", title).
		Str("body", body).
		Msg("push notification")
	return nil
}

// LogMailer writes emails to the log instead of an SMTP transport.
type LogMailer struct {
	Log  zerolog.Logger
	From string
}

// Send implements Mailer.
func (m LogMailer) Send(to, subject, body string) error {
	m.Log.Info().
		Str("from", m.From).
		Str("to", to).
		Str("subject", subject).
		Msg("email")
	return nil
}

// Discard drops all notifications and emails. Used in tests.
type Discard struct{}

// Push implements Notifier.
func (Discard) Push(string, string, string) error { return nil }

// Send implements Mailer.
func (Discard) Send(string, string, string) error { return nil }
