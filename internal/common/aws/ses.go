// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the part of *ses.Client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESClient sends mail from a fixed verified sender.
type SESClient struct {
	api  SESAPI
	from string
}

func NewSESClient(ctx context.Context, region, from string) (*SESClient, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSESClientFromAPI(ses.NewFromConfig(cfg), from), nil
}

func NewSESClientFromAPI(api SESAPI, from string) *SESClient {
	return &SESClient{api: api, from: from}
}

// SendEmail delivers one message and returns the SES message ID. An empty
// html body sends text only.
func (s *SESClient) SendEmail(ctx context.Context, to []string, subject, text, html string) (string, error) {
	if len(to) == 0 {
		return "", fmt.Errorf("ses: no recipients")
	}
	body := &types.Body{Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")}}
	if html != "" {
		body.Html = &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")}
	}

	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(s.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send email: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
