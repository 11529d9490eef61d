package utils

import (
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	AppName  string
	// BaseURL is the public origin used to build verification links
	BaseURL string
	// TokenExpMinutes / CodeExpMinutes are shown in the email copy
	TokenExpMinutes int
	CodeExpMinutes  int
}

// EmailManager delivers verification artifacts over SMTP. Callers treat it as
// a fire-and-forget collaborator: a failed send never leaves a live secret
// behind (the caller rolls the stored digest back).
type EmailManager struct {
	Config *SMTPConfig
}

func NewEmailManager(config *SMTPConfig) *EmailManager {
	return &EmailManager{Config: config}
}

// send handles the actual SMTP handshake and delivery.
func (em *EmailManager) send(toEmail string, subject string, body string) error {
	smtpAddr := fmt.Sprintf("%s:%d", em.Config.Host, em.Config.Port)

	// RFC 822 headers, CRLF-separated, blank line before the body.
	headers := []string{
		fmt.Sprintf("From: %s", em.Config.User),
		fmt.Sprintf("To: %s", toEmail),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}

	message := strings.Join(headers, "\r\n")

	auth := smtp.PlainAuth("", em.Config.User, em.Config.Password, em.Config.Host)

	return smtp.SendMail(smtpAddr, auth, em.Config.User, []string{toEmail}, []byte(message))
}

// SendVerificationEmail delivers the one-time email verification link.
func (em *EmailManager) SendVerificationEmail(toEmail string, token string) error {
	subject := fmt.Sprintf("%s - Verify Your Email Address", em.Config.AppName)

	link := fmt.Sprintf("%s/auth/verify-email/%s", em.Config.BaseURL, token)

	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Welcome to %s! Please confirm your email address by opening the link below:\n\n"+
			"%s\n\n"+
			"The link will expire in %d minutes.\n\n"+
			"Best regards,\nThe %s Team",
		em.Config.AppName, link, em.Config.TokenExpMinutes, em.Config.AppName)

	return em.send(toEmail, subject, body)
}

// SendTwoFactorCode delivers the single-use login code.
func (em *EmailManager) SendTwoFactorCode(toEmail string, code string) error {
	subject := fmt.Sprintf("%s - Your Login Verification Code", em.Config.AppName)

	body := fmt.Sprintf(
		"Hello,\n\n"+
			"Use the verification code below to finish logging in to %s:\n\n"+
			"Login Code: %s\n\n"+
			"This code will expire in %d minutes. If you did not request this login, we recommend updating your security settings.\n\n"+
			"Best regards,\nThe %s Team",
		em.Config.AppName, code, em.Config.CodeExpMinutes, em.Config.AppName)

	return em.send(toEmail, subject, body)
}
