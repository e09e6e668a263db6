package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"bitwise74/phone-verify/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the part of *dynamodb.Client used by Dynamo
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Dynamo stores versions in a table with partition key "phone" (S) and
// sort key "version" (N).
//
// Versions are dense, so "expected version is still current" is the same as
// "expected exists and expected+1 does not". The initial insert is a put
// guarded by attribute_not_exists, the next insert pairs that put with a
// condition check on the expected version in one transaction.
type Dynamo struct {
	c     DynamoAPI
	table *string
	clock Clock
}

func NewDynamo(c DynamoAPI, table string, clock Clock) *Dynamo {
	return &Dynamo{c: c, table: aws.String(table), clock: clock}
}

func versionKey(phone string, version int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"phone":   &types.AttributeValueMemberS{Value: phone},
		"version": &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
	}
}

// query reads the newest versions of phone first. With onlyVersion set the
// items carry nothing but the sort key ("version" is a reserved word, hence
// the placeholder).
func (d *Dynamo) query(ctx context.Context, phone string, limit int, onlyVersion bool) (*dynamodb.QueryOutput, error) {
	in := &dynamodb.QueryInput{
		TableName:              d.table,
		KeyConditionExpression: aws.String("phone = :phone"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":phone": &types.AttributeValueMemberS{Value: phone},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
		ConsistentRead:   aws.Bool(true),
	}

	if onlyVersion {
		in.ProjectionExpression = aws.String("#v")
		in.ExpressionAttributeNames = map[string]string{"#v": "version"}
	}

	return d.c.Query(ctx, in)
}

func (d *Dynamo) GetLatestVersion(ctx context.Context, phone string) (int64, bool, error) {
	out, err := d.query(ctx, phone, 1, true)
	if err != nil {
		return 0, false, fmt.Errorf("failed to query latest version, %w", err)
	}

	if len(out.Items) == 0 {
		return 0, false, nil
	}

	var item struct {
		Version int64 `dynamodbav:"version"`
	}
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return 0, false, fmt.Errorf("failed to decode latest version, %w", err)
	}

	return item.Version, true, nil
}

func (d *Dynamo) InsertInitialVersion(ctx context.Context, phone string) (*model.Verification, error) {
	v, item, err := d.newItem(phone, 1)
	if err != nil {
		return nil, err
	}

	_, err = d.c.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           d.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(phone)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, ErrConditionFailed
		}

		return nil, fmt.Errorf("failed to insert version 1, %w", err)
	}

	return v, nil
}

func (d *Dynamo) InsertNextVersion(ctx context.Context, phone string, expectedCurrent int64) (*model.Verification, error) {
	v, item, err := d.newItem(phone, expectedCurrent+1)
	if err != nil {
		return nil, err
	}

	_, err = d.c.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				ConditionCheck: &types.ConditionCheck{
					TableName:           d.table,
					Key:                 versionKey(phone, expectedCurrent),
					ConditionExpression: aws.String("attribute_exists(phone)"),
				},
			},
			{
				Put: &types.Put{
					TableName:           d.table,
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(phone)"),
				},
			},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return nil, ErrConditionFailed
		}

		return nil, fmt.Errorf("failed to insert version %d, %w", v.Version, err)
	}

	return v, nil
}

func (d *Dynamo) newItem(phone string, version int64) (*model.Verification, map[string]types.AttributeValue, error) {
	v, err := model.NewVerification(phone, version, d.clock.now())
	if err != nil {
		return nil, nil, err
	}

	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode verification, %w", err)
	}

	return v, item, nil
}

// isConditionFailure reports whether err means another writer got there first
func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}

	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			code := aws.ToString(r.Code)
			if code == "ConditionalCheckFailed" || code == "TransactionConflict" {
				return true
			}
		}
	}

	return false
}

func (d *Dynamo) GetVerification(ctx context.Context, phone string, version int64) (*model.Verification, error) {
	out, err := d.c.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      d.table,
		Key:            versionKey(phone, version),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read verification, %w", err)
	}

	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var v model.Verification
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, fmt.Errorf("failed to decode verification, %w", err)
	}

	return &v, nil
}

func (d *Dynamo) GetRecentVerifications(ctx context.Context, phone string, limit int) ([]model.Verification, error) {
	if limit <= 0 {
		return nil, nil
	}

	out, err := d.query(ctx, phone, limit, false)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent verifications, %w", err)
	}

	var vs []model.Verification
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &vs); err != nil {
		return nil, fmt.Errorf("failed to decode verifications, %w", err)
	}

	return vs, nil
}
