package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log"
	"strings"

	"case_registry_go/config"

	"github.com/resend/resend-go/v2"
)

//go:embed templates/emails/*
var emailTemplates embed.FS

// Email represents an email message
type Email struct {
	To          []string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []EmailAttachment
}

// EmailAttachment is a file sent along with an email
type EmailAttachment struct {
	Filename string
	Content  []byte
}

// Notifier delivers the registration certificate to a complainant
type Notifier interface {
	SendCertificate(ctx context.Context, toEmail, fullName, code string, document []byte) error
}

// loadTemplate renders templates/emails/<name>.html and .txt
func loadTemplate(templateName string, data interface{}) (html string, text string, err error) {
	loadAndExec := func(ext string) (string, error) {
		path := "templates/emails/" + templateName + ext
		content, err := emailTemplates.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read template %s: %v", path, err)
		}

		tmpl, err := template.New(templateName + ext).Parse(string(content))
		if err != nil {
			return "", fmt.Errorf("failed to parse template %s: %v", path, err)
		}

		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("failed to execute template %s: %v", path, err)
		}
		return buf.String(), nil
	}

	htmlContent, err := loadAndExec(".html")
	if err != nil {
		return "", "", err
	}

	textContent, err := loadAndExec(".txt")
	if err != nil {
		return "", "", err
	}

	return htmlContent, textContent, nil
}

// CertificateEmailData contains data for the certificate email template
type CertificateEmailData struct {
	FullName string
	Code     string
}

// CertificateFileName is the attachment name used for certificate emails
func CertificateFileName(code string) string {
	return fmt.Sprintf("Certificate-%s.pdf", code)
}

// BuildCertificateEmail creates the certificate email with the PDF attached
func BuildCertificateEmail(toEmail, fullName, code string, document []byte) (*Email, error) {
	data := CertificateEmailData{FullName: fullName, Code: code}

	htmlBody, textBody, err := loadTemplate("certificate", data)
	if err != nil {
		return nil, err
	}

	return &Email{
		To:       []string{toEmail},
		Subject:  fmt.Sprintf("Registration certificate - Case %s", code),
		HTMLBody: htmlBody,
		TextBody: textBody,
		Attachments: []EmailAttachment{
			{Filename: CertificateFileName(code), Content: document},
		},
	}, nil
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}
	for _, a := range email.Attachments {
		params.Attachments = append(params.Attachments, &resend.Attachment{
			Filename: a.Filename,
			Content:  a.Content,
		})
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("[MAIL] Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details to console in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\n[MAIL] EMAIL (Development Mode - Not Actually Sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	for _, a := range email.Attachments {
		log.Printf("Attachment: %s (%d bytes)", a.Filename, len(a.Content))
	}
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}

// ResendNotifier sends certificates through Resend, or logs them in EMAIL_TEST_MODE
type ResendNotifier struct {
	cfg *config.Config
}

// NewResendNotifier creates a notifier using the email settings in cfg
func NewResendNotifier(cfg *config.Config) *ResendNotifier {
	return &ResendNotifier{cfg: cfg}
}

// SendCertificate emails the certificate PDF to the complainant
func (n *ResendNotifier) SendCertificate(ctx context.Context, toEmail, fullName, code string, document []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email, err := BuildCertificateEmail(toEmail, fullName, code, document)
	if err != nil {
		return err
	}
	return SendEmail(n.cfg, email)
}
