package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sns"
)

func NewSNS(ctx context.Context) (*sns.Client, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	return sns.NewFromConfig(cfg, func(o *sns.Options) {
		o.BaseEndpoint = endpoint()
	}), nil
}
