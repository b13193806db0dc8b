package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// OTPMailer delivers one-time passwords by email
type OTPMailer interface {
	SendOTPEmail(ctx context.Context, toEmail string, purpose OTPPurpose, otp string) error
}

// OTPPurpose selects the wording of an OTP email
type OTPPurpose int

const (
	OTPForRegistration OTPPurpose = iota
	OTPForPasswordReset
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client    *sesv2.Client
	fromEmail string
	fromName  string
	enabled   bool
	debug     bool
}

// NewEmailService creates a new email service
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName string, debug bool) (*EmailService, error) {
	// If fromEmail is empty, create a disabled service
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false, debug: debug}, nil
	}

	if debug {
		log.Printf("[DEBUG] Initializing email service with AWS SES, region=%s, from=%s", awsRegion, fromEmail)
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)
	return &EmailService{
		client:    sesv2.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		enabled:   true,
		debug:     debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

var otpEmailTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #0f172a; color: #f8fafc; }
.container { max-width: 600px; margin: 40px auto; background-color: #1e293b; border-radius: 16px; overflow: hidden; border: 1px solid #334155; }
.header { background: linear-gradient(135deg, #3b82f6 0%, #8b5cf6 100%); padding: 40px 20px; text-align: center; }
.header h1 { margin: 0; font-size: 28px; font-weight: 800; color: white; }
.content { padding: 40px; text-align: center; line-height: 1.6; }
.title { font-size: 22px; font-weight: 700; margin-bottom: 20px; }
.message { color: #94a3b8; font-size: 16px; margin-bottom: 30px; }
.otp-code { font-size: 32px; font-weight: 800; color: #3b82f6; letter-spacing: 12px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>Self Manager</h1></div>
  <div class="content">
    <div class="title">{{.Title}}</div>
    <div class="message">{{.Top}}</div>
    <div class="otp-code">{{.OTP}}</div>
    <div class="message" style="margin-top: 30px;">{{.Bottom}}</div>
  </div>
</div>
</body>
</html>`))

type otpEmail struct {
	Title, Top, Bottom, OTP string
}

func otpEmailContent(purpose OTPPurpose, otp string) otpEmail {
	if purpose == OTPForPasswordReset {
		return otpEmail{
			Title:  "Reset Your Password",
			Top:    "We received a request to reset your password for your Self Manager account.",
			Bottom: "If you didn't request this, you can safely ignore this email.",
			OTP:    otp,
		}
	}
	return otpEmail{
		Title:  "Welcome to Self Manager!",
		Top:    "Thank you for joining us! Please use the following code to verify your email address and complete your registration.",
		Bottom: "This code will expire shortly. Please do not share it with anyone.",
		OTP:    otp,
	}
}

// SendOTPEmail emails a one-time password
func (s *EmailService) SendOTPEmail(ctx context.Context, toEmail string, purpose OTPPurpose, otp string) error {
	content := otpEmailContent(purpose, otp)

	if !s.enabled {
		if s.debug {
			log.Printf("[DEBUG] Email disabled, OTP for %s: %s", toEmail, otp)
		}
		return nil
	}

	var html bytes.Buffer
	if err := otpEmailTemplate.Execute(&html, content); err != nil {
		return fmt.Errorf("failed to render otp email: %w", err)
	}

	subject := "Self Manager - " + content.Title
	return s.sendEmail(ctx, toEmail, subject, html.String(), "Your OTP is "+otp)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}
	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
