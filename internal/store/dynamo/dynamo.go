// Package dynamo implements the store.Store interface backed by a single
// DynamoDB table with one global secondary index (GSI1) for active runs.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/alfredjeanlab/dropin/internal/model"
	"github.com/alfredjeanlab/dropin/internal/store"
)

// API is the subset of *dynamodb.Client used by the store.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Store implements store.Store on DynamoDB.
type Store struct {
	client API
	table  string
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// New loads the default AWS configuration for region and returns a store on
// table. A non-empty endpoint overrides the service URL (DynamoDB Local).
func New(ctx context.Context, table, region, endpoint string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var opts []func(*dynamodb.Options)
	if endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	return NewWithClient(dynamodb.NewFromConfig(cfg, opts...), table), nil
}

// NewWithClient returns a store using an existing client.
func NewWithClient(client API, table string) *Store {
	return &Store{client: client, table: table}
}

// Table returns the table name.
func (s *Store) Table() string {
	return s.table
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: model.PartitionKey(id)},
		attrSK: &types.AttributeValueMemberS{Value: model.MetadataSortKey},
	}
}

// GetRun returns the run stored under id, or nil, nil when there is none.
func (s *Store) GetRun(ctx context.Context, id string) (*model.Run, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if resp.Item == nil {
		return nil, nil
	}

	var it item
	if err := attributevalue.UnmarshalMap(resp.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", id, err)
	}
	return it.toRun(), nil
}

// PutRunIfAbsent writes run guarded by attribute_not_exists(PK).
func (s *Store) PutRunIfAbsent(ctx context.Context, run *model.Run) error {
	av, err := attributevalue.MarshalMap(toItem(run))
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", run.ID, err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(attrPK))).
		Build()
	if err != nil {
		return fmt.Errorf("build put condition: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(s.table),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		return translate(fmt.Errorf("put run %s: %w", run.ID, err))
	}
	return nil
}

// UpdateRunIfExists applies m in a single UpdateItem guarded by
// attribute_exists(PK) and returns the item as stored afterwards.
func (s *Store) UpdateRunIfExists(ctx context.Context, run *model.Run, m model.Mutation) (*model.Run, error) {
	upd, err := buildUpdate(run, m)
	if err != nil {
		return nil, err
	}

	expr, err := expression.NewBuilder().
		WithUpdate(upd).
		WithCondition(expression.AttributeExists(expression.Name(attrPK))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build update for run %s: %w", run.ID, err)
	}

	resp, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       key(run.ID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, translate(fmt.Errorf("update run %s: %w", run.ID, err))
	}

	var it item
	if err := attributevalue.UnmarshalMap(resp.Attributes, &it); err != nil {
		return nil, fmt.Errorf("unmarshal run %s: %w", run.ID, err)
	}
	return it.toRun(), nil
}

// buildUpdate turns a mutation into SET and REMOVE clauses.
func buildUpdate(run *model.Run, m model.Mutation) (expression.UpdateBuilder, error) {
	var upd expression.UpdateBuilder
	if len(m.Set) == 0 && len(m.Clear) == 0 && m.Index.Action == model.IndexKeep {
		return upd, fmt.Errorf("update run %s: empty mutation", run.ID)
	}

	for _, f := range m.Set {
		v, ok := fieldValue(run, f)
		if !ok {
			return upd, fmt.Errorf("update run %s: unknown field %q", run.ID, f)
		}
		upd = upd.Set(expression.Name(f), expression.Value(v))
	}
	for _, f := range m.Clear {
		if _, ok := fieldValue(run, f); !ok {
			return upd, fmt.Errorf("update run %s: unknown field %q", run.ID, f)
		}
		upd = upd.Remove(expression.Name(f))
	}

	switch m.Index.Action {
	case model.IndexRemove:
		upd = upd.Remove(expression.Name(attrGSI1PK)).Remove(expression.Name(attrGSI1SK))
	case model.IndexAdd:
		upd = upd.Set(expression.Name(attrGSI1PK), expression.Value(model.ActivePartition)).
			Set(expression.Name(attrGSI1SK), expression.Value(m.Index.SortKey))
	case model.IndexMove:
		upd = upd.Set(expression.Name(attrGSI1SK), expression.Value(m.Index.SortKey))
	}
	return upd, nil
}

// QueryActiveRuns reads the whole ACTIVE_RUN partition of GSI1, following
// pagination. Index items carry no edit token.
func (s *Store) QueryActiveRuns(ctx context.Context) ([]*model.Run, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key(attrGSI1PK).Equal(expression.Value(model.ActivePartition))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build active query: %w", err)
	}

	var (
		runs  []*model.Run
		start map[string]types.AttributeValue
	)
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(s.table),
			IndexName:                 aws.String(model.ActiveIndexName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         start,
		})
		if err != nil {
			return nil, fmt.Errorf("query active runs: %w", err)
		}

		var items []item
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal active runs: %w", err)
		}
		for i := range items {
			runs = append(runs, items[i].toRun())
		}

		if len(resp.LastEvaluatedKey) == 0 {
			return runs, nil
		}
		start = resp.LastEvaluatedKey
	}
}

// Ping describes the table.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	if err != nil {
		return fmt.Errorf("describe table %s: %w", s.table, err)
	}
	return nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// translate maps a failed condition check to store.ErrConditionFailed.
func translate(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return store.ErrConditionFailed
	}
	return err
}
