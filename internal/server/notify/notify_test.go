package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/lockbox/internal/common"
	"github.com/dmitrijs2005/lockbox/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeMessage(t *testing.T) {
	m := NewCodeMessage("a@example.com", "042042", 10*time.Minute)
	assert.Equal(t, "a@example.com", m.To)
	assert.Contains(t, m.Body, "042042")
	assert.Contains(t, m.Body, "10 minutes")
}

type sent struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  []byte
}

func stubSendMail(t *testing.T, err error) *sent {
	t.Helper()
	got := &sent{}
	orig := sendMail
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		*got = sent{addr, a, from, to, msg}
		return err
	}
	t.Cleanup(func() { sendMail = orig })
	return got
}

func TestSMTPDispatcher_Send(t *testing.T) {
	got := stubSendMail(t, nil)

	d, err := NewSMTPDispatcher("mail.example.com:587", "user", "pw", "lockbox@example.com")
	require.NoError(t, err)

	err = d.Send(context.Background(), NewCodeMessage("a@example.com", "123456", 10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "mail.example.com:587", got.addr)
	assert.NotNil(t, got.auth)
	assert.Equal(t, []string{"a@example.com"}, got.to)
	body := string(got.msg)
	assert.True(t, strings.HasPrefix(body, "From: lockbox@example.com\r\nTo: a@example.com\r\n"))
	assert.Contains(t, body, "123456")
}

func TestSMTPDispatcher_NoAuthWithoutUser(t *testing.T) {
	got := stubSendMail(t, nil)

	d, err := NewSMTPDispatcher("localhost:25", "", "", "lockbox@localhost")
	require.NoError(t, err)
	require.NoError(t, d.Send(context.Background(), Message{To: "a@example.com"}))
	assert.Nil(t, got.auth)
}

func TestSMTPDispatcher_Failure(t *testing.T) {
	stubSendMail(t, errors.New("connection refused"))

	d, err := NewSMTPDispatcher("localhost:25", "", "", "lockbox@localhost")
	require.NoError(t, err)

	err = d.Send(context.Background(), Message{To: "a@example.com"})
	assert.ErrorIs(t, err, common.ErrDispatch)
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPDispatcher_CancelledContext(t *testing.T) {
	stubSendMail(t, nil)
	d, err := NewSMTPDispatcher("localhost:25", "", "", "lockbox@localhost")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, d.Send(ctx, Message{To: "a@example.com"}), common.ErrDispatch)
}

func TestNewSMTPDispatcher_Invalid(t *testing.T) {
	_, err := NewSMTPDispatcher("localhost:25", "", "", "not an address")
	assert.Error(t, err)

	_, err = NewSMTPDispatcher("no-port", "user", "pw", "lockbox@localhost")
	assert.Error(t, err)
}

func TestLogDispatcher(t *testing.T) {
	var buf bytes.Buffer
	d := NewLogDispatcher(logging.NewJSON(&buf, slog.LevelInfo))

	require.NoError(t, d.Send(context.Background(), NewCodeMessage("a@example.com", "654321", time.Minute)))
	assert.Contains(t, buf.String(), "654321")
	assert.Contains(t, buf.String(), "a@example.com")
}
