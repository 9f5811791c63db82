package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
)

const charset = "UTF-8"

// SESConfig holds the Amazon SES connection settings.
type SESConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	From            string
}

// SESSender delivers email through Amazon SES.
type SESSender struct {
	svc  sesiface.SESAPI
	from string
}

// NewSESSender opens an AWS session with static credentials. Empty keys
// fall back to the default credential chain.
func NewSESSender(cfg SESConfig) (*SESSender, error) {
	if cfg.From == "" {
		return nil, errors.New("mailer: ses sender requires a from address")
	}
	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("mailer: aws session: %w", err)
	}
	return NewSESSenderWithClient(ses.New(sess), cfg.From), nil
}

// NewSESSenderWithClient wraps an existing SES client.
func NewSESSenderWithClient(svc sesiface.SESAPI, from string) *SESSender {
	return &SESSender{svc: svc, from: from}
}

// Send submits msg to SES.
func (s *SESSender) Send(ctx context.Context, msg Message) (DeliveryStatus, error) {
	if err := msg.Validate(); err != nil {
		return DeliveryStatus{}, err
	}

	body := &ses.Body{}
	if msg.Text != "" {
		body.Text = &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.Text)}
	}
	if msg.HTML != "" {
		body.Html = &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.HTML)}
	}

	out, err := s.svc.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Source:      aws.String(s.from),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(msg.To)}},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String(charset), Data: aws.String(msg.Subject)},
			Body:    body,
		},
	})
	if err != nil {
		return DeliveryStatus{}, fmt.Errorf("mailer: ses send: %w", err)
	}
	return DeliveryStatus{Provider: "ses", MessageID: aws.StringValue(out.MessageId)}, nil
}
