package sms

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	in  *sns.PublishInput
	out *sns.PublishOutput
	err error
}

func (f *fakeSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestSNSSend(t *testing.T) {
	f := &fakeSNS{out: &sns.PublishOutput{MessageId: aws.String("msg-1")}}
	s := NewSNS(f, "Verify")

	id, err := s.Send(context.Background(), "+16502530000", "Your code is: 123456")
	require.NoError(t, err)
	require.Equal(t, "msg-1", id)

	require.Equal(t, "+16502530000", aws.ToString(f.in.PhoneNumber))
	require.Equal(t, "Your code is: 123456", aws.ToString(f.in.Message))
	require.Nil(t, f.in.TopicArn)
	require.Equal(t, "Transactional", aws.ToString(f.in.MessageAttributes["AWS.SNS.SMS.SMSType"].StringValue))
	require.Equal(t, "Verify", aws.ToString(f.in.MessageAttributes["AWS.SNS.SMS.SenderID"].StringValue))
}

func TestSNSSendWithoutSenderID(t *testing.T) {
	f := &fakeSNS{out: &sns.PublishOutput{MessageId: aws.String("msg-1")}}

	_, err := NewSNS(f, "").Send(context.Background(), "+16502530000", "hi")
	require.NoError(t, err)

	_, ok := f.in.MessageAttributes["AWS.SNS.SMS.SenderID"]
	require.False(t, ok)
}

func TestSNSSendFailure(t *testing.T) {
	f := &fakeSNS{err: errors.New("throttled")}

	_, err := NewSNS(f, "").Send(context.Background(), "+16502530000", "hi")
	require.ErrorContains(t, err, "throttled")

	f = &fakeSNS{out: &sns.PublishOutput{}}
	_, err = NewSNS(f, "").Send(context.Background(), "+16502530000", "hi")
	require.Error(t, err)
}

func TestLogSend(t *testing.T) {
	id, err := NewLog().Send(context.Background(), "+16502530000", "hi")
	require.NoError(t, err)
	require.NotEmpty(t, id)
}
