package summary

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/warp/attendance/attendance"
)

// Mailer delivers a plain-text message to the configured recipient.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// NopMailer drops every message. Used when mail is not configured.
type NopMailer struct{}

func (NopMailer) Send(context.Context, string, string) error { return nil }

// sesAPI is the subset of *ses.Client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES.
type SESMailer struct {
	client sesAPI
	from   string
	to     string
}

// NewSESMailer loads the default AWS credential chain for region.
func NewSESMailer(ctx context.Context, region, from, to string) (*SESMailer, error) {
	if from == "" || to == "" {
		return nil, fmt.Errorf("mail sender and receiver are required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("AWS config load failed: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from, to: to}, nil
}

func (m *SESMailer) Send(ctx context.Context, subject, body string) error {
	input := &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{m.to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(body),
				},
			},
		},
		Source: aws.String(fmt.Sprintf("Attendance Tracker <%s>", m.from)),
	}

	if _, err := m.client.SendEmail(ctx, input); err != nil {
		return attendance.UpstreamError("ses", err)
	}
	return nil
}
