// Package notify delivers replay links to the teacher by email.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailConfig holds SMTP settings. An empty Host or User runs the notifier
// in dev mode, where messages are logged instead of sent.
type EmailConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
	BaseURL  string
}

// EmailNotifier sends "your replay is ready" mails when a session opens.
type EmailNotifier struct {
	cfg     EmailConfig
	devMode bool
	send    SendFunc
	log     logrus.FieldLogger
}

func NewEmailNotifier(cfg EmailConfig, log logrus.FieldLogger) *EmailNotifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	devMode := cfg.Host == "" || cfg.User == ""
	if devMode {
		log.Warn("email notifier running in dev mode, messages are logged only")
	}
	return &EmailNotifier{
		cfg:     cfg,
		devMode: devMode,
		send:    smtp.SendMail,
		log:     log.WithField("component", "notify"),
	}
}

// Notify reports whether a mail actually left the process. No recipient and
// dev mode both return false without error.
func (n *EmailNotifier) Notify(ctx context.Context, recipient, slug, quizName string) (bool, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	link := ReplayURL(n.cfg.BaseURL, slug)
	subject := fmt.Sprintf("Replay ready: %s", quizName)
	body := fmt.Sprintf("A new game of %q has started.\r\n\r\nFollow it and watch the replay at:\r\n%s\r\n", quizName, link)

	if n.devMode {
		n.log.WithFields(logrus.Fields{
			"to":      recipient,
			"subject": subject,
			"link":    link,
		}).Info("dev email")
		return false, nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", n.cfg.From),
		fmt.Sprintf("To: %s", recipient),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
	}
	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	auth := smtp.PlainAuth("", n.cfg.User, n.cfg.Password, n.cfg.Host)
	addr := n.cfg.Host + ":" + n.cfg.Port
	if err := n.send(addr, auth, n.cfg.From, []string{recipient}, []byte(message)); err != nil {
		return false, errors.Wrapf(err, "send replay email to %s", recipient)
	}
	n.log.WithFields(logrus.Fields{"to": recipient, "slug": slug}).Info("replay email sent")
	return true, nil
}

// ReplayURL joins the public base URL and the replay path for slug.
func ReplayURL(baseURL, slug string) string {
	return strings.TrimRight(baseURL, "/") + "/replay/" + slug
}
