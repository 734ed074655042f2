package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifySkipsEmptyRecipient(t *testing.T) {
	n := NewEmailNotifier(EmailConfig{Host: "smtp.local", User: "u"}, nil)
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	sent, err := n.Notify(context.Background(), "  ", "abc", "Quiz")
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestNotifyDevModeLogs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewEmailNotifier(EmailConfig{BaseURL: "http://localhost:5173/"}, logger)
	require.True(t, n.devMode)

	sent, err := n.Notify(context.Background(), "teacher@example.com", "abc123", "Fractions")
	require.NoError(t, err)
	assert.False(t, sent)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "http://localhost:5173/replay/abc123", entry.Data["link"])
}

func TestNotifySendsMail(t *testing.T) {
	logger, _ := test.NewNullLogger()
	n := NewEmailNotifier(EmailConfig{
		Host:    "smtp.local",
		Port:    "2525",
		User:    "quiz",
		From:    "quiz@example.com",
		BaseURL: "https://board.example.com",
	}, logger)

	var gotAddr string
	var gotTo []string
	var gotMsg string
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	sent, err := n.Notify(context.Background(), "teacher@example.com", "s1", "Planets")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "smtp.local:2525", gotAddr)
	assert.Equal(t, []string{"teacher@example.com"}, gotTo)
	assert.True(t, strings.Contains(gotMsg, "Subject: Replay ready: Planets"))
	assert.True(t, strings.Contains(gotMsg, "https://board.example.com/replay/s1"))
}

func TestNotifyWrapsSendError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	n := NewEmailNotifier(EmailConfig{Host: "smtp.local", User: "quiz"}, logger)
	n.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}
	sent, err := n.Notify(context.Background(), "teacher@example.com", "s1", "Planets")
	require.Error(t, err)
	assert.False(t, sent)
	assert.Contains(t, err.Error(), "connection refused")
}
