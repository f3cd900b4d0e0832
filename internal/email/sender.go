package email

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/wneessen/go-mail"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// DefaultSendTimeout bounds a delivery whose context carries no deadline.
const DefaultSendTimeout = 30 * time.Second

// SMTPSender relays messages through an SMTP server, upgrading to TLS when the
// server offers STARTTLS and authenticating with PLAIN auth when a username is
// configured. Every delivery is bounded by its context: the connection's
// deadline follows the context and a cancellation aborts the conversation.
type SMTPSender struct {
	host     string
	port     int
	from     string
	username string
	password string
	timeout  time.Duration
}

func NewSMTPSender(addr, username, password, from string) (*SMTPSender, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("smtp address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return nil, fmt.Errorf("smtp port %q: %w", rawPort, err)
	}

	return &SMTPSender{
		host:     host,
		port:     port,
		from:     from,
		username: username,
		password: password,
		timeout:  DefaultSendTimeout,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := s.message(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(s.timeout),
		mail.WithDialContextFunc(boundDialer(ctx)),
	}
	if s.username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.username),
			mail.WithPassword(s.password),
		)
	}
	client, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send to %s: %w", msg.To, ctxErr)
		}
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) message(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("smtp sender address %q: %w", s.from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("smtp recipient address %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}

// boundDialer ties every connection it opens to sendCtx. The client's own
// dial context is not used for this since it ends as soon as the dial does.
func boundDialer(sendCtx context.Context) mail.DialContextFunc {
	return func(dialCtx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(dialCtx, network, address)
		if err != nil {
			return nil, err
		}
		if deadline, ok := sendCtx.Deadline(); ok {
			if err := conn.SetDeadline(deadline); err != nil {
				conn.Close()
				return nil, err
			}
		}
		context.AfterFunc(sendCtx, func() {
			_ = conn.SetDeadline(time.Now())
		})
		return conn, nil
	}
}

// LogSender writes messages to the log instead of delivering them. It is used
// when no SMTP server is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "body_bytes", len(msg.Body))
	return nil
}
