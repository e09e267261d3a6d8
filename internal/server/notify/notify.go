// Package notify delivers one-time codes to users.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Message is a plain-text e-mail.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher sends a message. Failures wrap common.ErrDispatch.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// NewCodeMessage builds the sign-in code e-mail.
func NewCodeMessage(email, code string, validity time.Duration) Message {
	return Message{
		To:      email,
		Subject: "Your lockbox sign-in code",
		Body: fmt.Sprintf("Your sign-in code is %s.\r\n\r\nIt expires in %d minutes. If you did not request it, ignore this e-mail.\r\n",
			code, int(validity.Minutes())),
	}
}
