package dynamodb

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	pkgerrors "handswers-backend/pkg/errors"
)

// Item is a raw DynamoDB item.
type Item = map[string]types.AttributeValue

const (
	// DynamoDB accepts at most 25 write requests per BatchWriteItem.
	BatchChunkSize = 25

	DefaultPage     = 1
	DefaultPageSize = 15
)

// RetryPolicy controls retries of unprocessed batch items. The delay
// before retry n (0-based) is InitialDelay * 2^n.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

// DefaultRetryPolicy retries five times starting at 100ms.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, InitialDelay: 100 * time.Millisecond}

// QuerySpec describes one key-condition query against a table or index.
type QuerySpec struct {
	IndexName    string
	KeyCondition expression.KeyConditionBuilder
	Filter       *expression.ConditionBuilder
	Descending   bool
}

// Table is the generic accessor shared by the Entities, Users and
// Schools stores. hashKey names the attribute whose existence proves an
// item is present.
type Table struct {
	client  DBClient
	name    string
	hashKey string
	retry   RetryPolicy
	logger  *zap.Logger
	now     func() time.Time
}

// NewTable creates a Table accessor.
func NewTable(client DBClient, name, hashKey string, retry RetryPolicy, logger *zap.Logger) *Table {
	return &Table{
		client:  client,
		name:    name,
		hashKey: hashKey,
		retry:   retry,
		logger:  logger.With(zap.String("table", name)),
		now:     time.Now,
	}
}

// Name returns the physical table name.
func (t *Table) Name() string { return t.name }

// Get returns the item at key or ports.ErrNotFound.
func (t *Table) Get(ctx context.Context, key Item) (Item, error) {
	result, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(t.name),
		Key:       key,
	})
	if err != nil {
		return nil, t.storeError("GetItem", err)
	}
	if result.Item == nil {
		return nil, ports.ErrNotFound
	}
	return result.Item, nil
}

// Create writes item unconditionally, stamping createdAt (unix seconds)
// when the caller did not set it. The written item is returned.
func (t *Table) Create(ctx context.Context, item Item) (Item, error) {
	stamped := make(Item, len(item)+1)
	for k, v := range item {
		stamped[k] = v
	}
	if _, ok := stamped[entities.AttrCreatedAt]; !ok {
		stamped[entities.AttrCreatedAt] = &types.AttributeValueMemberN{
			Value: strconv.FormatInt(t.now().Unix(), 10),
		}
	}

	_, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      stamped,
	})
	if err != nil {
		return nil, t.storeError("PutItem", err)
	}
	return stamped, nil
}

// Delete removes the item at key and returns its previous attributes,
// or ports.ErrNotFound when there was nothing to delete.
func (t *Table) Delete(ctx context.Context, key Item) (Item, error) {
	result, err := t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(t.name),
		Key:          key,
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return nil, t.storeError("DeleteItem", err)
	}
	if len(result.Attributes) == 0 {
		return nil, ports.ErrNotFound
	}
	return result.Attributes, nil
}

// Query returns the items of one 1-based page. The store only offers
// forward cursors, so pages before the requested one are fetched and
// discarded. The walk stops early when the store reports no further
// cursor, in which case the result is short or empty.
func (t *Table) Query(ctx context.Context, spec QuerySpec, page, pageSize int) ([]Item, error) {
	page, pageSize = normalizePage(page, pageSize)

	builder := expression.NewBuilder().WithKeyCondition(spec.KeyCondition)
	if spec.Filter != nil {
		builder = builder.WithFilter(*spec.Filter)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build query expression").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(!spec.Descending),
		Limit:                     aws.Int32(int32(pageSize)),
	}
	if spec.IndexName != "" {
		input.IndexName = aws.String(spec.IndexName)
	}

	return t.walkPages(page, func(cursor Item) ([]Item, Item, error) {
		input.ExclusiveStartKey = cursor
		result, err := t.client.Query(ctx, input)
		if err != nil {
			return nil, nil, t.storeError("Query", err)
		}
		return result.Items, result.LastEvaluatedKey, nil
	})
}

// ScanPage pages through the whole table the same way Query does.
func (t *Table) ScanPage(ctx context.Context, page, pageSize int) ([]Item, error) {
	page, pageSize = normalizePage(page, pageSize)

	input := &dynamodb.ScanInput{
		TableName: aws.String(t.name),
		Limit:     aws.Int32(int32(pageSize)),
	}
	return t.walkPages(page, func(cursor Item) ([]Item, Item, error) {
		input.ExclusiveStartKey = cursor
		result, err := t.client.Scan(ctx, input)
		if err != nil {
			return nil, nil, t.storeError("Scan", err)
		}
		return result.Items, result.LastEvaluatedKey, nil
	})
}

func (t *Table) walkPages(page int, fetch func(cursor Item) ([]Item, Item, error)) ([]Item, error) {
	var cursor Item
	for current := 1; current <= page; current++ {
		items, next, err := fetch(cursor)
		if err != nil {
			return nil, err
		}
		if current == page {
			return items, nil
		}
		if len(next) == 0 {
			break
		}
		cursor = next
	}
	return []Item{}, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// Update applies upd to the existing item at key in a single SET and
// returns the item as it is afterwards. An update without fields returns
// ports.ErrNoUpdate without calling the store; a missing item returns
// ports.ErrNotFound instead of being created.
func (t *Table) Update(ctx context.Context, key Item, upd entities.Update) (Item, error) {
	fields := upd.Fields()
	if len(fields) == 0 {
		return nil, ports.ErrNoUpdate
	}

	var set expression.UpdateBuilder
	for _, f := range fields {
		set = set.Set(expression.Name(f.Name), expression.Value(f.Value))
	}
	expr, err := expression.NewBuilder().
		WithUpdate(set).
		WithCondition(expression.Name(t.hashKey).AttributeExists()).
		Build()
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to build update expression").WithCause(err)
	}

	result, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, ports.ErrNotFound
		}
		return nil, t.storeError("UpdateItem", err)
	}
	return result.Attributes, nil
}

// BatchDelete deletes keys in chunks of BatchChunkSize. Unprocessed
// items are retried with exponential backoff; whatever is left after the
// last retry is logged and counted, not returned as an error.
func (t *Table) BatchDelete(ctx context.Context, keys []Item) (ports.BatchResult, error) {
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, key := range keys {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}
	return t.batchWrite(ctx, "delete", requests)
}

// BatchPut writes items with the same chunking and retry policy as
// BatchDelete.
func (t *Table) BatchPut(ctx context.Context, items []Item) (ports.BatchResult, error) {
	requests := make([]types.WriteRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}
	return t.batchWrite(ctx, "put", requests)
}

func (t *Table) batchWrite(ctx context.Context, op string, requests []types.WriteRequest) (ports.BatchResult, error) {
	res := ports.BatchResult{Requested: len(requests)}

	for start := 0; start < len(requests); start += BatchChunkSize {
		end := min(start+BatchChunkSize, len(requests))

		pending := requests[start:end]
		for retry := 0; ; retry++ {
			result, err := t.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{t.name: pending},
			})
			res.Requests++
			if err != nil {
				return res, t.storeError("BatchWriteItem", err)
			}

			pending = result.UnprocessedItems[t.name]
			if len(pending) == 0 || retry >= t.retry.MaxRetries {
				break
			}

			delay := t.retry.InitialDelay * time.Duration(1<<retry)
			t.logger.Debug("Retrying unprocessed batch items",
				zap.String("op", op),
				zap.Int("unprocessed", len(pending)),
				zap.Int("retry", retry+1),
				zap.Duration("backoff", delay),
			)
			select {
			case <-ctx.Done():
				return res, pkgerrors.NewInternalError("batch write cancelled").WithCause(ctx.Err())
			case <-time.After(delay):
			}
		}

		if len(pending) > 0 {
			t.logger.Warn("Batch items left unprocessed after retries",
				zap.String("op", op),
				zap.Int("unprocessed", len(pending)),
				zap.Int("maxRetries", t.retry.MaxRetries),
			)
			res.Unprocessed += len(pending)
		}
		res.Processed += (end - start) - len(pending)
	}

	return res, nil
}

func (t *Table) storeError(op string, err error) error {
	fields := []zap.Field{zap.String("operation", op), zap.Error(err)}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.String("awsErrorCode", apiErr.ErrorCode()))
	}
	t.logger.Error("DynamoDB call failed", fields...)
	return pkgerrors.NewDatabaseError(op, err)
}
