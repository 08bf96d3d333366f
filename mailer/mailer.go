package mailer

import (
	"context"
	"fmt"

	"github.com/Team-Roomin/Roomin/logger"
	"github.com/mailjet/mailjet-apiv3-go"
	"go.uber.org/zap"
)

// Mailer sends account verification mail.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, otp, link string) error
}

type MailjetMailer struct {
	client      *mailjet.Client
	senderEmail string
	senderName  string
}

func NewMailjetMailer(publicKey, privateKey, senderEmail, senderName string) *MailjetMailer {
	return &MailjetMailer{
		client:      mailjet.NewMailjetClient(publicKey, privateKey),
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (m *MailjetMailer) SendVerification(_ context.Context, to, name, otp, link string) error {
	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From: &mailjet.RecipientV31{
			Email: m.senderEmail,
			Name:  m.senderName,
		},
		To: &mailjet.RecipientsV31{
			mailjet.RecipientV31{Email: to, Name: name},
		},
		Subject:  "Verify your Roomin account",
		TextPart: verificationText(name, otp, link),
		HTMLPart: verificationHTML(name, otp, link),
	}}}

	if _, err := m.client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("mailjet send: %w", err)
	}
	return nil
}

// LogMailer writes the message to the log instead of sending it.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, _, otp, link string) error {
	m.log.Info("verification mail not sent, mailer disabled",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("otp", otp),
		zap.String("link", link),
	)
	return nil
}

func verificationText(name, otp, link string) string {
	return fmt.Sprintf("Hi %s,\n\nYour Roomin verification code is %s. It expires in 5 minutes.\n"+
		"You can also verify by opening %s within the next hour.\n", name, otp, link)
}

func verificationHTML(name, otp, link string) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p>Your Roomin verification code is <strong>%s</strong>. It expires in 5 minutes.</p>`+
		`<p>Or <a href="%s">verify your account</a> within the next hour.</p>`, name, otp, link)
}
