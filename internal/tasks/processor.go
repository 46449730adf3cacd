package tasks

import (
	"bytes"
	"context"
	"fmt"
	"text/template"

	"github.com/rs/zerolog"

	"github.com/AdrianLinares/petcare-app-sub000/internal/notify"
)

// Email is a rendered message ready for a transport.
type Email struct {
	MessageID string
	To        string
	Subject   string
	Body      string
}

type Deliverer interface {
	Deliver(ctx context.Context, email Email) error
}

type mailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[notify.Kind]mailTemplate{
	notify.KindPasswordReset: {
		subject: "Reset your PetCare password",
		body: template.Must(template.New("reset").Parse(`Hello,

We received a request to reset the password for your PetCare account.
Open the link below to choose a new password:

{{.Link}}

The link works once and expires after a short time. If it has expired,
request a new one from the sign-in page.

If you did not ask for this, you can ignore this email. Your password
will stay the same.
`)),
	},
	notify.KindPasswordChanged: {
		subject: "Your PetCare password was changed",
		body: template.Must(template.New("changed").Parse(`Hello,

The password for your PetCare account was changed on {{.IssuedAt.Format "2006-01-02 15:04 MST"}}.

If this was not you, request a password reset right away and contact
your clinic.
`)),
	},
}

type MailProcessor struct {
	deliverer Deliverer
	logger    zerolog.Logger
}

func NewMailProcessor(deliverer Deliverer, logger zerolog.Logger) *MailProcessor {
	return &MailProcessor{
		deliverer: deliverer,
		logger:    logger,
	}
}

func (p *MailProcessor) Handle(ctx context.Context, msg notify.Message) error {
	email, err := Render(msg)
	if err != nil {
		p.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("unrenderable mail message")
		return nil
	}

	if err := p.deliverer.Deliver(ctx, email); err != nil {
		return fmt.Errorf("deliver %s: %w", msg.Kind, err)
	}
	p.logger.Info().Str("message_id", msg.ID).Str("kind", string(msg.Kind)).Msg("mail delivered")
	return nil
}

func Render(msg notify.Message) (Email, error) {
	tpl, ok := templates[msg.Kind]
	if !ok {
		return Email{}, fmt.Errorf("no template for kind %q", msg.Kind)
	}
	if msg.Kind == notify.KindPasswordReset && msg.Link == "" {
		return Email{}, fmt.Errorf("password reset message %s has no link", msg.ID)
	}

	var body bytes.Buffer
	if err := tpl.body.Execute(&body, msg); err != nil {
		return Email{}, err
	}
	return Email{
		MessageID: msg.ID,
		To:        msg.To,
		Subject:   tpl.subject,
		Body:      body.String(),
	}, nil
}

// LogDeliverer writes mail to the log instead of sending it. The body is
// omitted because a reset email carries a live secret.
type LogDeliverer struct {
	logger zerolog.Logger
}

func NewLogDeliverer(logger zerolog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, email Email) error {
	d.logger.Info().
		Str("message_id", email.MessageID).
		Str("subject", email.Subject).
		Int("body_bytes", len(email.Body)).
		Msg("mail handed to log deliverer")
	return nil
}
