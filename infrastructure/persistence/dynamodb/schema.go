package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// SchemaClient is what table provisioning needs.
type SchemaClient interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// TableNames are the physical names of the three tables.
type TableNames struct {
	Entities string
	Users    string
	Schools  string
}

func attrDef(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeS}
}

func numAttrDef(name string) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: types.ScalarAttributeTypeN}
}

func keyElem(name string, t types.KeyType) types.KeySchemaElement {
	return types.KeySchemaElement{AttributeName: aws.String(name), KeyType: t}
}

func gsi(name, hash, rangeKey string) types.GlobalSecondaryIndex {
	schema := []types.KeySchemaElement{keyElem(hash, types.KeyTypeHash)}
	if rangeKey != "" {
		schema = append(schema, keyElem(rangeKey, types.KeyTypeRange))
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(name),
		KeySchema:  schema,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

// TableDefinitions describes the Entities, Users and Schools tables with
// their secondary indexes, all on-demand.
func TableDefinitions(names TableNames) []*dynamodb.CreateTableInput {
	return []*dynamodb.CreateTableInput{
		{
			TableName: aws.String(names.Entities),
			AttributeDefinitions: []types.AttributeDefinition{
				attrDef("PK"), attrDef("SK"), attrDef("teacherId"), attrDef("active"), attrDef("roomCode"), attrDef("roomId"),
				numAttrDef("createdAt"),
			},
			KeySchema: []types.KeySchemaElement{keyElem("PK", types.KeyTypeHash), keyElem("SK", types.KeyTypeRange)},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(IndexTeacherActiveRooms, "teacherId", "active"),
				gsi(IndexTeacherRooms, "teacherId", "createdAt"),
				gsi(IndexActiveRoomCode, "roomCode", "active"),
				gsi(IndexMessageRoomID, "roomId", ""),
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName:            aws.String(names.Users),
			AttributeDefinitions: []types.AttributeDefinition{attrDef("id"), attrDef("email"), attrDef("school"), attrDef("type")},
			KeySchema:            []types.KeySchemaElement{keyElem("id", types.KeyTypeHash)},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
				gsi(IndexUserEmail, "email", ""),
				gsi(IndexUserSchool, "school", "type"),
			},
			BillingMode: types.BillingModePayPerRequest,
		},
		{
			TableName:              aws.String(names.Schools),
			AttributeDefinitions:   []types.AttributeDefinition{attrDef("id"), attrDef("name")},
			KeySchema:              []types.KeySchemaElement{keyElem("id", types.KeyTypeHash)},
			GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{gsi(IndexSchoolName, "name", "")},
			BillingMode:            types.BillingModePayPerRequest,
		},
	}
}

// EnsureTables creates missing tables, waits for them to become active
// and enables TTL on the Entities table for expired leases.
func EnsureTables(ctx context.Context, client SchemaClient, names TableNames, logger *zap.Logger) error {
	for _, def := range TableDefinitions(names) {
		name := aws.ToString(def.TableName)
		_, err := client.CreateTable(ctx, def)
		if err != nil {
			var inUse *types.ResourceInUseException
			if !errors.As(err, &inUse) {
				return fmt.Errorf("create table %s: %w", name, err)
			}
			logger.Info("Table already exists", zap.String("table", name))
			continue
		}

		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: def.TableName}, 2*time.Minute); err != nil {
			return fmt.Errorf("wait for table %s: %w", name, err)
		}
		logger.Info("Table created", zap.String("table", name))
	}

	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(names.Entities),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("ttl"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		// Already enabled is reported as a validation error; not fatal.
		logger.Warn("Could not enable TTL", zap.String("table", names.Entities), zap.Error(err))
	}
	return nil
}
