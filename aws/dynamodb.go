package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

type DynamoClient struct {
	C     *dynamodb.Client
	Table string
}

// NewDynamoDB connects to DynamoDB and makes sure the verification table exists
func NewDynamoDB(ctx context.Context) (*DynamoClient, error) {
	cfg, err := LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	table := viper.GetString("dynamodb.table")

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		o.BaseEndpoint = endpoint()
	})

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(table),
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "ResourceNotFoundException" {
				return nil, fmt.Errorf("table '%s' does not exist", table)
			}
		}

		return nil, fmt.Errorf("failed to check if table exists, %w", err)
	}

	return &DynamoClient{
		C:     client,
		Table: table,
	}, nil
}
