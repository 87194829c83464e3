package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	pkgerrors "handswers-backend/pkg/errors"
)

// LeaseLocker grants expiring leases stored as LOCK# items in the
// Entities table. An expired lease can be taken over by the next caller.
type LeaseLocker struct {
	client    DBClient
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

func NewLeaseLocker(client DBClient, tableName string, logger *zap.Logger) *LeaseLocker {
	return &LeaseLocker{client: client, tableName: tableName, logger: logger, now: time.Now}
}

func lockKey(resource string) Item {
	return Item{
		"PK": &types.AttributeValueMemberS{Value: "LOCK#" + resource},
		"SK": &types.AttributeValueMemberS{Value: "LOCK"},
	}
}

// TryAcquire takes the lease on resource or returns ports.ErrLockHeld.
func (l *LeaseLocker) TryAcquire(ctx context.Context, resource, owner string, ttl time.Duration) (ports.Lock, error) {
	now := l.now()
	expiresAt := now.Add(ttl)
	lockID := uuid.New().String()

	item := lockKey(resource)
	item["lockId"] = &types.AttributeValueMemberS{Value: lockID}
	item["owner"] = &types.AttributeValueMemberS{Value: owner}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.UnixMilli(), 10)}
	// DynamoDB TTL reaps abandoned leases.
	item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Add(time.Hour).Unix(), 10)}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR expiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			l.logger.Debug("Lease already held", zap.String("resource", resource), zap.String("owner", owner))
			return nil, ports.ErrLockHeld
		}
		return nil, pkgerrors.NewDatabaseError("AcquireLease", err)
	}

	return &lease{locker: l, resource: resource, lockID: lockID}, nil
}

func (l *LeaseLocker) release(ctx context.Context, resource, lockID string) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 lockKey(resource),
		ConditionExpression: aws.String("lockId = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Expired and taken over; nothing of ours left to delete.
			l.logger.Warn("Lease lost before release", zap.String("resource", resource))
			return nil
		}
		return fmt.Errorf("release lease %s: %w", resource, err)
	}
	return nil
}

type lease struct {
	locker   *LeaseLocker
	resource string
	lockID   string
}

func (l *lease) Release(ctx context.Context) error {
	return l.locker.release(ctx, l.resource, l.lockID)
}

var _ ports.Locker = (*LeaseLocker)(nil)
