package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"storefront-service/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

// Config relay SMTP de un tenant. Host vacío deja el mailer en modo log.
type Config struct {
	Brand      string
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SSL        bool
	SalesEmail string
	Timeout    time.Duration
}

func (c Config) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type sendFunc func(ctx context.Context, msgs ...*mail.Msg) error

// Mailer arma y envía los mails de órdenes y de códigos de cuenta.
type Mailer struct {
	cfg  Config
	send sendFunc
}

var ErrNoRecipient = errors.New("notify: order has no customer email")

func New(cfg Config) (*Mailer, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	m := &Mailer{cfg: cfg}
	if !cfg.Enabled() {
		log.Warn().Str("brand", cfg.Brand).Msg("SMTP no configurado, los mails sólo se loguean")
		m.send = logOnly
		return m, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL(), mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	m.send = client.DialAndSendWithContext
	return m, nil
}

func logOnly(_ context.Context, msgs ...*mail.Msg) error {
	for _, msg := range msgs {
		log.Info().Strs("to", msg.GetToString()).Strs("subject", msg.GetGenHeader(mail.HeaderSubject)).
			Msg("mail no enviado (SMTP deshabilitado)")
	}
	return nil
}

// OrderConfirmation creds sólo viene cuando la cuenta se creó en el checkout.
func (m *Mailer) OrderConfirmation(ctx context.Context, o *model.Order, creds *model.Credentials) error {
	if o.Customer.Email == "" {
		return ErrNoRecipient
	}
	body, err := render(confirmationTmpl, confirmationData{Brand: m.cfg.Brand, Order: o, Credentials: creds})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s order confirmation #%s", m.cfg.Brand, o.OrderNumber)
	msg, err := m.message(o.Customer.Email, subject, body)
	if err != nil {
		return err
	}
	if m.cfg.SalesEmail != "" {
		if err := msg.Bcc(m.cfg.SalesEmail); err != nil {
			return fmt.Errorf("bcc: %w", err)
		}
	}
	return m.deliver(ctx, msg)
}

func (m *Mailer) StatusUpdate(ctx context.Context, o *model.Order) error {
	if o.Customer.Email == "" {
		return ErrNoRecipient
	}
	body, err := render(statusTmpl, statusData{Brand: m.cfg.Brand, Order: o, Status: strings.ToUpper(o.OrderStatus)})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Order #%s - %s Update", o.OrderNumber, strings.ToUpper(o.OrderStatus))
	msg, err := m.message(o.Customer.Email, subject, body)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m *Mailer) PasswordResetCode(ctx context.Context, u *model.User, code string) error {
	return m.sendCode(ctx, u, code, "Your password reset code", "reset your password")
}

func (m *Mailer) VerificationCode(ctx context.Context, u *model.User, code string) error {
	return m.sendCode(ctx, u, code, "Verify your email address", "verify your email address")
}

func (m *Mailer) sendCode(ctx context.Context, u *model.User, code, subject, purpose string) error {
	body, err := render(codeTmpl, codeData{Brand: m.cfg.Brand, Username: u.Username, Code: code, Purpose: purpose})
	if err != nil {
		return err
	}
	msg, err := m.message(u.Email, m.cfg.Brand+": "+subject, body)
	if err != nil {
		return err
	}
	return m.deliver(ctx, msg)
}

func (m *Mailer) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	from := m.cfg.From
	if from == "" {
		from = "no-reply@localhost"
	}
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func (m *Mailer) deliver(ctx context.Context, msg *mail.Msg) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}
