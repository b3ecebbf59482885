// internal/common/aws/sns.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the part of *sns.Client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes to a single topic.
type SNSClient struct {
	api      SNSAPI
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := LoadConfig(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSNSClientFromAPI(sns.NewFromConfig(cfg), topicARN), nil
}

func NewSNSClientFromAPI(api SNSAPI, topicARN string) *SNSClient {
	return &SNSClient{api: api, topicARN: topicARN}
}

// Publish sends message with string attributes and returns the SNS message ID.
func (s *SNSClient) Publish(ctx context.Context, subject, message string, attrs map[string]string) (string, error) {
	in := &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(message),
	}
	if subject != "" {
		in.Subject = aws.String(subject)
	}
	if len(attrs) > 0 {
		in.MessageAttributes = make(map[string]types.MessageAttributeValue, len(attrs))
		for k, v := range attrs {
			in.MessageAttributes[k] = types.MessageAttributeValue{
				DataType:    aws.String("String"),
				StringValue: aws.String(v),
			}
		}
	}

	out, err := s.api.Publish(ctx, in)
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
