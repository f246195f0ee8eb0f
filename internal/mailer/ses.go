package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// sesAPI is the part of the SES client the mailer calls.
type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SES delivers mail through Amazon SES v2.  With no sender address it is
// disabled and drops messages with a warning.
type SES struct {
	client    sesAPI
	fromEmail string
	fromName  string
	enabled   bool
	log       *slog.Logger
}

// NewSES loads the default AWS configuration for region and builds the
// client.
func NewSES(ctx context.Context, region, fromEmail, fromName string, logger *slog.Logger) (*SES, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if fromEmail == "" {
		logger.Warn("email delivery disabled: SES_FROM_EMAIL not configured")
		return &SES{log: logger}, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	logger.Info("email delivery enabled", "from", fromEmail, "region", region)
	return newSES(sesv2.NewFromConfig(cfg), fromEmail, fromName, logger), nil
}

func newSES(client sesAPI, fromEmail, fromName string, logger *slog.Logger) *SES {
	return &SES{client: client, fromEmail: fromEmail, fromName: fromName, enabled: true, log: logger}
}

// Enabled reports whether messages are actually sent.
func (s *SES) Enabled() bool { return s.enabled }

// Send renders kind and delivers it to the recipient.
func (s *SES) Send(ctx context.Context, to string, kind model.NotificationKind, data map[string]string) error {
	msg, err := Render(kind, data)
	if err != nil {
		return err
	}
	return s.Deliver(ctx, to, msg)
}

// Deliver sends an already rendered message.
func (s *SES) Deliver(ctx context.Context, to string, msg Message) error {
	if !s.enabled {
		s.log.Warn("skipping email (delivery disabled)", "to", to, "subject", msg.Subject)
		return nil
	}
	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	s.log.Info("email sent", "to", to, "subject", msg.Subject, "message_id", aws.ToString(out.MessageId))
	return nil
}
