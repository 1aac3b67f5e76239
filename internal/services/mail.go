package services

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/planora/backend/internal/config"
	"github.com/planora/backend/pkg/logger"
)

// MailService sends transactional mail over plain SMTP. With incomplete SMTP
// configuration it stays disabled and every send becomes a silent no-op, so
// local development works without a mail server.
type MailService struct {
	host        string
	port        string
	username    string
	password    string
	from        string
	frontendURL string
	enabled     bool
}

func NewMailService(cfg config.SMTPConfig, frontendURL string) *MailService {
	enabled := cfg.Host != "" && cfg.Port != "" && cfg.From != ""
	if !enabled {
		logger.Info("mail_service_disabled", map[string]interface{}{
			"reason": "incomplete SMTP configuration",
		})
	}

	return &MailService{
		host:        cfg.Host,
		port:        cfg.Port,
		username:    cfg.Username,
		password:    cfg.Password,
		from:        cfg.From,
		frontendURL: frontendURL,
		enabled:     enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject, body string) {
	if !s.enabled {
		return
	}

	go func() {
		var auth smtp.Auth
		if s.username != "" {
			auth = smtp.PlainAuth("", s.username, s.password, s.host)
		}
		addr := fmt.Sprintf("%s:%s", s.host, s.port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: Planora <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.from, subject, mime, body))

		if err := smtp.SendMail(addr, auth, s.from, to, msg); err != nil {
			logger.Error("mail_send_failed", err, map[string]interface{}{
				"to":      strings.Join(to, ","),
				"subject": subject,
			})
			return
		}
		logger.Info("mail_sent", map[string]interface{}{
			"to":      strings.Join(to, ","),
			"subject": subject,
		})
	}()
}

func (s *MailService) SendVerificationCode(email, name, code string) {
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your Planora verification code is:</p><h2>%s</h2><p>The code expires in 15 minutes.</p>",
		name, code,
	)
	s.sendAsync([]string{email}, "Verify your Planora account", body)
}

func (s *MailService) SendInvitation(email, guestName, eventTitle, organizerName, token string) {
	link := fmt.Sprintf("%s/invitation/%s", s.frontendURL, token)
	greeting := "Hi,"
	if guestName != "" {
		greeting = fmt.Sprintf("Hi %s,", guestName)
	}
	body := fmt.Sprintf(
		"<p>%s</p><p>%s invited you to <strong>%s</strong>.</p><p><a href=\"%s\">Open your invitation</a> to respond.</p>",
		greeting, organizerName, eventTitle, link,
	)
	s.sendAsync([]string{email}, fmt.Sprintf("You're invited to %s", eventTitle), body)
}
