package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the part of *sns.Client used by SNS
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS publishes transactional SMS messages through Amazon SNS
type SNS struct {
	c        SNSAPI
	senderID string
}

func NewSNS(c SNSAPI, senderID string) *SNS {
	return &SNS{c: c, senderID: senderID}
}

func (s *SNS) Send(ctx context.Context, phone, body string) (string, error) {
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}

	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.c.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String(phone),
		Message:           aws.String(body),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish sms, %w", err)
	}

	if out.MessageId == nil {
		return "", errors.New("sns returned no message id")
	}

	return *out.MessageId, nil
}
