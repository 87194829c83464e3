package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DBClient is the part of the DynamoDB API the stores use. *dynamodb.Client
// satisfies it; tests substitute a mock.
type DBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var _ DBClient = (*dynamodb.Client)(nil)

// Index names of the three tables.
const (
	IndexTeacherActiveRooms = "TeacherActiveRooms"
	IndexTeacherRooms       = "TeacherRoomsIndex"
	IndexActiveRoomCode     = "ActiveRoomCodeIndex"
	IndexMessageRoomID      = "MessageRoomIdIndex"
	IndexUserEmail          = "EmailIndex"
	IndexUserSchool         = "SchoolIndex"
	IndexSchoolName         = "NameIndex"
)
