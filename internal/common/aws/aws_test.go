package aws

import (
	"context"
	"errors"
	"strings"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	got *ses.SendEmailInput
	err error
}

func (m *mockSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.got = params
	if m.err != nil {
		return nil, m.err
	}
	return &ses.SendEmailOutput{MessageId: awssdk.String("ses-1")}, nil
}

type mockSNS struct {
	got *sns.PublishInput
	err error
}

func (m *mockSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	m.got = params
	if m.err != nil {
		return nil, m.err
	}
	return &sns.PublishOutput{MessageId: awssdk.String("sns-1")}, nil
}

func TestSESClient_SendEmail(t *testing.T) {
	api := &mockSES{}
	c := NewSESClientFromAPI(api, "noreply@example.com")

	id, err := c.SendEmail(context.Background(), "owner@example.com", "Done", "plain", "")
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)
	assert.Equal(t, "noreply@example.com", awssdk.ToString(api.got.Source))
	assert.Equal(t, []string{"owner@example.com"}, api.got.Destination.ToAddresses)
	assert.Equal(t, "plain", awssdk.ToString(api.got.Message.Body.Text.Data))
	assert.Nil(t, api.got.Message.Body.Html)

	_, err = c.SendEmail(context.Background(), "owner@example.com", "Done", "plain", "<p>plain</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>plain</p>", awssdk.ToString(api.got.Message.Body.Html.Data))
}

func TestSESClient_Error(t *testing.T) {
	c := NewSESClientFromAPI(&mockSES{err: errors.New("throttled")}, "noreply@example.com")
	_, err := c.SendEmail(context.Background(), "a@b.c", "s", "t", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSNSClient_SendSMS(t *testing.T) {
	api := &mockSNS{}
	c := NewSNSClientFromAPI(api)

	id, err := c.SendSMS(context.Background(), "+15550100", strings.Repeat("x", 2000))
	require.NoError(t, err)
	assert.Equal(t, "sns-1", id)
	assert.Equal(t, "+15550100", awssdk.ToString(api.got.PhoneNumber))
	assert.Len(t, awssdk.ToString(api.got.Message), maxSMSLength)
	assert.Equal(t, "Transactional", awssdk.ToString(api.got.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))

	_, err = NewSNSClientFromAPI(&mockSNS{err: errors.New("opted out")}).SendSMS(context.Background(), "+1", "hi")
	assert.Error(t, err)
}
