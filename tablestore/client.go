/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package tablestore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/entityrepo/logger"
)

// API is the subset of the DynamoDB client the table store uses.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
	DescribeTable(ctx context.Context, params *sdk.DescribeTableInput, optFns ...func(*sdk.Options)) (*sdk.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *sdk.CreateTableInput, optFns ...func(*sdk.Options)) (*sdk.CreateTableOutput, error)
}

var _ API = (*sdk.Client)(nil)

// DefaultTableWait bounds how long EnsureTable waits for a new table to become active.
const DefaultTableWait = 2 * time.Minute

// NewClient builds a DynamoDB client from parsed settings using static
// credentials. The SDK retryer is replaced by a no-op one: every call is
// sent once and retry policy stays with the caller.
func NewClient(ctx context.Context, s Settings) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccountName, s.AccountKey, ""),
		),
		config.WithRetryer(func() aws.Retryer { return aws.NopRetryer{} }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return sdk.NewFromConfig(cfg, func(o *sdk.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
	}), nil
}

// EnsureTable creates table with a PK/SK string key schema when it does not
// exist and waits until it is active. It reports whether the table was created.
func EnsureTable(ctx context.Context, api API, table string, maxWait time.Duration, log logger.Logger) (bool, error) {
	if log == nil {
		log = logger.Discard()
	}
	if maxWait <= 0 {
		maxWait = DefaultTableWait
	}

	_, err := api.DescribeTable(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)})
	if err == nil {
		return false, nil
	}
	var rnf *types.ResourceNotFoundException
	if !stderrors.As(err, &rnf) {
		return false, fmt.Errorf("describing table %s: %w", table, err)
	}

	_, err = api.CreateTable(ctx, &sdk.CreateTableInput{
		TableName: aws.String(table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(AttrPartition), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(AttrRow), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(AttrPartition), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(AttrRow), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !stderrors.As(err, &inUse) {
		return false, fmt.Errorf("creating table %s: %w", table, err)
	}
	created := err == nil

	waiter := sdk.NewTableExistsWaiter(api)
	if err := waiter.Wait(ctx, &sdk.DescribeTableInput{TableName: aws.String(table)}, maxWait); err != nil {
		return false, fmt.Errorf("waiting for table %s: %w", table, err)
	}
	if created {
		log.Info("table created", "table", table)
	}
	return created, nil
}
