package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrLinkMissingSecret = errors.New("recovery link does not carry the secret")

// Publisher hands a message to a transport. Delivery happens in the worker.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Mailer struct {
	publisher Publisher
	now       func() time.Time
}

func NewMailer(publisher Publisher) *Mailer {
	return &Mailer{publisher: publisher, now: time.Now}
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, toEmail, secret, recoveryLink string) error {
	if secret == "" || !strings.Contains(recoveryLink, secret) {
		return ErrLinkMissingSecret
	}
	return m.send(ctx, Message{
		Kind: KindPasswordReset,
		To:   toEmail,
		Link: recoveryLink,
	})
}

func (m *Mailer) SendPasswordChangedNotification(ctx context.Context, toEmail string) error {
	return m.send(ctx, Message{
		Kind: KindPasswordChanged,
		To:   toEmail,
	})
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	msg.ID = uuid.NewString()
	msg.IssuedAt = m.now().UTC()
	if err := m.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s mail: %w", msg.Kind, err)
	}
	return nil
}
