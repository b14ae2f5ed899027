package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/SSTConexionSalud/sistema-turnos/internal/types"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

const stateKey = "StateID"

// DynamoAPI is the subset of the DynamoDB client used by DynamoDBStore
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// stateItem is the single DynamoDB item holding a facility's state
type stateItem struct {
	StateID  string         `dynamodbav:"StateID"`
	Version  int64          `dynamodbav:"Version"` // SavedAt in unix nanoseconds
	Snapshot types.Snapshot `dynamodbav:"Snapshot"`
}

// DynamoDBStore implements Store using AWS DynamoDB
type DynamoDBStore struct {
	client DynamoAPI
	config DynamoConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// Build the client directly; LoadDefaultConfig probes the EC2 IMDS
		// endpoint, which hangs when static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	// Create tables in local mode
	if cfg.Mode == DynamoModeLocal {
		if err := CreateTablesIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.StateTable).
		Msg("DynamoDB store initialized")

	return newDynamoDBStoreWithClient(client, cfg, logger), nil
}

func newDynamoDBStoreWithClient(client DynamoAPI, cfg DynamoConfig, logger zerolog.Logger) *DynamoDBStore {
	return &DynamoDBStore{
		client: client,
		config: cfg,
		logger: logger,
	}
}

func (s *DynamoDBStore) key() map[string]dbtypes.AttributeValue {
	return map[string]dbtypes.AttributeValue{
		stateKey: &dbtypes.AttributeValueMemberS{Value: s.config.StateID},
	}
}

func (s *DynamoDBStore) LoadSnapshot(ctx context.Context) (types.Snapshot, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.StateTable),
		Key:            s.key(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to load state: %w", err)
	}
	if len(result.Item) == 0 {
		return types.Snapshot{}, ErrNoSnapshot
	}

	var item stateItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return types.Snapshot{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return item.Snapshot, nil
}

// SaveSnapshot writes the snapshot unless a newer one is already stored
func (s *DynamoDBStore) SaveSnapshot(ctx context.Context, snapshot types.Snapshot) error {
	item := stateItem{
		StateID:  s.config.StateID,
		Version:  snapshot.SavedAt.UnixNano(),
		Snapshot: snapshot,
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("Version")).
		Or(expression.Name("Version").LessThanEqual(expression.Value(item.Version)))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.config.StateTable),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var stale *dbtypes.ConditionalCheckFailedException
	if errors.As(err, &stale) {
		s.logger.Debug().Time("saved_at", snapshot.SavedAt).Msg("newer state already stored, skipping write")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *DynamoDBStore) Close() error { return nil }
