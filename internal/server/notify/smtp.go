package notify

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

// sendMail is a seam for smtp.SendMail.
var sendMail = smtp.SendMail

// SMTPDispatcher relays messages through an SMTP server.
type SMTPDispatcher struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPDispatcher uses PLAIN auth when user is not empty.
func NewSMTPDispatcher(addr, user, password, from string) (*SMTPDispatcher, error) {
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	d := &SMTPDispatcher{addr: addr, from: from}
	if user != "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid smtp address %q: %w", addr, err)
		}
		d.auth = smtp.PlainAuth("", user, password, host)
	}
	return d, nil
}

func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDispatch, err)
	}
	if err := sendMail(d.addr, d.auth, d.from, []string{msg.To}, d.render(msg)); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDispatch, err)
	}
	return nil
}

func (d *SMTPDispatcher) render(msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", d.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", strings.ReplaceAll(msg.Subject, "\n", " "))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.Bytes()
}
