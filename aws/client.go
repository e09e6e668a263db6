// Package aws defines functions used to interact with the AWS API
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/viper"
)

// LoadConfig builds the SDK config from the aws.* settings. Static
// credentials are only used when both keys are set, otherwise the default
// chain (env, shared profile, instance role) applies.
func LoadConfig(ctx context.Context) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(viper.GetString("aws.region")),
	}

	if viper.GetString("aws.access_key") != "" && viper.GetString("aws.secret_access_key") != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("aws.access_key"),
			viper.GetString("aws.secret_access_key"),
			"",
		)))
	}

	return config.LoadDefaultConfig(ctx, opts...)
}

// endpoint returns the override used for local emulators, or nil
func endpoint() *string {
	if e := viper.GetString("aws.endpoint"); e != "" {
		return aws.String(e)
	}

	return nil
}
