package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// maxSMSLength keeps a message within a single concatenated SMS.
const maxSMSLength = 1600

type SNSClient struct {
	api SNSAPI
}

func NewSNSClient(cfg awssdk.Config) *SNSClient {
	return NewSNSClientFromAPI(sns.NewFromConfig(cfg))
}

func NewSNSClientFromAPI(api SNSAPI) *SNSClient {
	return &SNSClient{api: api}
}

// SendSMS publishes a transactional SMS and returns the SNS message id.
func (s *SNSClient) SendSMS(ctx context.Context, phone, message string) (string, error) {
	if r := []rune(message); len(r) > maxSMSLength {
		message = string(r[:maxSMSLength])
	}
	out, err := s.api.Publish(ctx, &sns.PublishInput{
		PhoneNumber: awssdk.String(phone),
		Message:     awssdk.String(message),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    awssdk.String("String"),
				StringValue: awssdk.String("Transactional"),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return awssdk.ToString(out.MessageId), nil
}
