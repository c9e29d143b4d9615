package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"familia/internal/qrcode"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

// NewEmailService creates a new email service. Without a sender address the
// service is disabled and every send is skipped.
func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{appBaseURL: appBaseURL}, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("Email service enabled", "from", fromEmail, "region", awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// JoinLink returns the web link that opens the join flow for a family
func (s *EmailService) JoinLink(familyID string) string {
	return fmt.Sprintf("%s/join?payload=%s", s.appBaseURL, url.QueryEscape(qrcode.JoinPayload(familyID)))
}

// SendFamilyInvitation emails a join link for a family
func (s *EmailService) SendFamilyInvitation(ctx context.Context, toEmail, inviterName, familyName, familyID string) error {
	if !s.enabled {
		slog.Info("Skipping email send (service disabled)", "kind", "family_invitation", "to", toEmail)
		return nil
	}

	link := s.JoinLink(familyID)
	subject := fmt.Sprintf("%s invited you to join %s", inviterName, familyName)
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<p>Hi,</p>
	<p><strong>%s</strong> invited you to join the family <strong>%s</strong>.</p>
	<p><a href="%s">Join %s</a></p>
	<p>Or scan the family QR code from the app and enter this code: %s</p>
</body>
</html>
`, html.EscapeString(inviterName), html.EscapeString(familyName), link, html.EscapeString(familyName), familyID)

	textBody := fmt.Sprintf(`Hi,

%s invited you to join the family %s.

Open this link to join:
%s

Family code: %s
`, inviterName, familyName, link, familyID)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
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

	slog.Info("Email sent", "to", toEmail, "subject", subject, "message_id", aws.ToString(result.MessageId))
	return nil
}
