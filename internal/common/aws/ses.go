package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESClient struct {
	api  SESAPI
	from string
}

func NewSESClient(cfg awssdk.Config, from string) *SESClient {
	return NewSESClientFromAPI(ses.NewFromConfig(cfg), from)
}

func NewSESClientFromAPI(api SESAPI, from string) *SESClient {
	return &SESClient{api: api, from: from}
}

// SendEmail sends a text email, with an HTML part when html is non-empty,
// and returns the SES message id.
func (s *SESClient) SendEmail(ctx context.Context, to, subject, text, html string) (string, error) {
	body := &types.Body{Text: &types.Content{Data: awssdk.String(text), Charset: awssdk.String("UTF-8")}}
	if html != "" {
		body.Html = &types.Content{Data: awssdk.String(html), Charset: awssdk.String("UTF-8")}
	}

	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body:    body,
		},
		Source: awssdk.String(s.from),
	})
	if err != nil {
		return "", fmt.Errorf("ses send to %s: %w", to, err)
	}
	return awssdk.ToString(out.MessageId), nil
}
