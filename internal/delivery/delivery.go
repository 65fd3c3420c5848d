package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"mashup/internal/config"
	"mashup/internal/fileutil"
	"mashup/internal/logging"
	"mashup/internal/services"
)

const (
	stageDelivery = "delivery"

	Subject = "Your Mashup Audio"
	Body    = "Attached is the zip file containing your mashup audio."
)

// ErrFileNotFound reports a missing attachment.
var ErrFileNotFound = errors.New("File not found")

// Sender delivers an attachment to a recipient.
type Sender interface {
	Send(ctx context.Context, recipient, attachmentPath, attachmentName string) error
}

// MailClient sends composed messages.
type MailClient interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Option configures an SMTPSender.
type Option func(*SMTPSender)

// WithClient injects a mail client (primarily for tests).
func WithClient(client MailClient) Option {
	return func(s *SMTPSender) {
		if client != nil {
			s.client = client
		}
	}
}

// SMTPSender mails archives through an SMTP relay.
type SMTPSender struct {
	from    string
	timeout time.Duration
	client  MailClient
	logger  *slog.Logger
}

// NewSMTPSender builds a sender from mail settings.
func NewSMTPSender(cfg config.Mail, logger *slog.Logger, opts ...Option) (*SMTPSender, error) {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageDelivery, "init", "mail sender address required", nil)
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = time.Minute
	}
	sender := &SMTPSender{
		from:    from,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "mailer"),
	}
	for _, opt := range opts {
		opt(sender)
	}
	if sender.client == nil {
		client, err := newClient(cfg, timeout)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, stageDelivery, "init", "configure smtp client", err)
		}
		sender.client = client
	}
	return sender, nil
}

func newClient(cfg config.Mail, timeout time.Duration) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if strings.TrimSpace(cfg.Username) != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	return mail.NewClient(cfg.Host, opts...)
}

// Compose builds the outgoing message.
func (s *SMTPSender) Compose(recipient, attachmentPath, attachmentName string) (*mail.Msg, error) {
	if err := requireFile(attachmentPath); err != nil {
		return nil, err
	}
	if attachmentName == "" {
		attachmentName = filepath.Base(attachmentPath)
	}
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return nil, services.Wrap(services.ErrDelivery, stageDelivery, "compose", "invalid sender", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, services.Wrap(services.ErrDelivery, stageDelivery, "compose", "invalid recipient", err)
	}
	msg.Subject(Subject)
	msg.SetBodyString(mail.TypeTextPlain, Body)
	msg.AttachFile(attachmentPath, mail.WithFileName(attachmentName))
	return msg, nil
}

// Send mails the attachment to recipient.
func (s *SMTPSender) Send(ctx context.Context, recipient, attachmentPath, attachmentName string) error {
	msg, err := s.Compose(recipient, attachmentPath, attachmentName)
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.DialAndSendWithContext(sendCtx, msg); err != nil {
		return services.Wrap(services.ErrDelivery, stageDelivery, "send", "", &transportError{err: err})
	}
	logging.WithContext(ctx, s.logger).Info("mail sent",
		logging.String("recipient", recipient),
		logging.String("attachment", attachmentName),
	)
	return nil
}

// DirectorySender copies archives into a local directory.
type DirectorySender struct {
	dir    string
	logger *slog.Logger
}

// NewDirectorySender returns a sender writing into dir.
func NewDirectorySender(dir string, logger *slog.Logger) *DirectorySender {
	return &DirectorySender{dir: dir, logger: logging.NewComponentLogger(logger, "export")}
}

// Send copies the attachment into the directory. The recipient is only logged.
func (d *DirectorySender) Send(ctx context.Context, recipient, attachmentPath, attachmentName string) error {
	if err := requireFile(attachmentPath); err != nil {
		return err
	}
	if attachmentName == "" {
		attachmentName = filepath.Base(attachmentPath)
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return services.Wrap(services.ErrDelivery, stageDelivery, "export", "create output directory", err)
	}
	result, err := fileutil.CopyFileVerified(attachmentPath, filepath.Join(d.dir, attachmentName))
	if err != nil {
		return services.Wrap(services.ErrDelivery, stageDelivery, "export", "copy archive", err)
	}
	logging.WithContext(ctx, d.logger).Info("archive exported",
		logging.String("recipient", recipient),
		logging.String("path", result.Path),
		logging.Int64("bytes", result.Size),
		logging.String("sha256", result.SHA256),
	)
	return nil
}

type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }

func (e *transportError) Unwrap() error { return e.err }

// Reason extracts the requester-facing cause of a delivery failure.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrFileNotFound) {
		return ErrFileNotFound.Error()
	}
	var te *transportError
	if errors.As(err, &te) {
		return te.Error()
	}
	return err.Error()
}

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fmt.Errorf("%w: %w", services.ErrDelivery, ErrFileNotFound)
	}
	return nil
}
