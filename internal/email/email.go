package email

import "context"

// ContactMessage is a support request submitted through the public contact
// form, forwarded to the support inbox.
type ContactMessage struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	IP        string
	UserAgent string
}

// Sender delivers transactional email. Delivery is fire-and-forget from the
// caller's perspective: failures are logged, never surfaced to the end user.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, name, code, locale string) error
	SendPasswordReset(ctx context.Context, to, name, code, locale string) error
	SendContactMessage(ctx context.Context, msg ContactMessage) error
}

// Noop discards all outgoing email. Used in development when no provider key
// is configured.
type Noop struct{}

func (Noop) SendVerificationCode(context.Context, string, string, string, string) error {
	return nil
}

func (Noop) SendPasswordReset(context.Context, string, string, string, string) error {
	return nil
}

func (Noop) SendContactMessage(context.Context, ContactMessage) error {
	return nil
}

var _ Sender = Noop{}
