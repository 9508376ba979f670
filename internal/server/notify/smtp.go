package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/durvaajgaonkar/secure-file-storage-system/internal/common"
	"github.com/durvaajgaonkar/secure-file-storage-system/internal/logging"
)

var sendMail = smtp.SendMail

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<body>
<p>Your file <strong>{{.FileName}}</strong> was encrypted and stored.</p>
<p>Keep the values below. They are the only way to retrieve the file and cannot be recovered.</p>
<table>
<tr><td>Encryption key</td><td><code>{{.Key}}</code></td></tr>
<tr><td>File ID</td><td><code>{{.ID}}</code></td></tr>
</table>
</body>
</html>
`))

// SMTPConfig carries mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPNotifier mails receipts using PLAIN auth when a user is configured.
type SMTPNotifier struct {
	cfg SMTPConfig
	log logging.Logger
}

// NewSMTPNotifier returns a mail based Notifier.
func NewSMTPNotifier(cfg SMTPConfig, log logging.Logger) *SMTPNotifier {
	if log == nil {
		log = logging.Nop{}
	}
	return &SMTPNotifier{cfg: cfg, log: log.With("module", "notify")}
}

// Send renders the receipt and hands it to the mail server. The context is
// only checked up front; net/smtp has no cancellation.
func (s *SMTPNotifier) Send(ctx context.Context, to string, n Notice) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorNotification, err)
	}
	if to == "" || strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("%w: invalid recipient", common.ErrorNotification)
	}

	msg, err := s.message(to, n)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrorNotification, err)
	}

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	if err := sendMail(addr, auth, s.cfg.From, []string{to}, msg); err != nil {
		s.log.Error(ctx, "receipt not delivered", "object_id", n.Receipt.ID, "error", err)
		return fmt.Errorf("%w: %w", common.ErrorNotification, err)
	}

	s.log.Info(ctx, "receipt delivered", "object_id", n.Receipt.ID)
	return nil
}

func (s *SMTPNotifier) message(to string, n Notice) ([]byte, error) {
	var body bytes.Buffer
	err := receiptTemplate.Execute(&body, struct {
		FileName string
		Key      string
		ID       string
	}{n.FileName, n.Receipt.Key.Hex(), n.Receipt.ID})
	if err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", "Your file "+n.FileName+" is stored"))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}
