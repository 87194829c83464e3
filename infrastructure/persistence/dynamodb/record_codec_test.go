package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
	pkgerrors "handswers-backend/pkg/errors"
)

func TestRecordCodec_RoundTripsEachVariant(t *testing.T) {
	code, err := valueobjects.ParseRoomCode("0042001")
	require.NoError(t, err)
	room := &entities.Room{ID: valueobjects.NewID(), Code: code, TeacherID: "t1", Active: true, CreatedAt: 1700000000}
	q := entities.NewQuestion(room.ID, "s@school.edu", "What is a prime?", time.UnixMilli(1700000000123))
	user, model := entities.NewExchange(q, 1700000000500, "hint please", "What divides it?")

	for _, rec := range []entities.Record{room, q, user, model} {
		item, err := encodeRecord(rec)
		require.NoError(t, err)

		decoded, err := decodeRecord(item)
		require.NoError(t, err)
		assert.Equal(t, rec.Kind(), decoded.Kind())
		assert.Equal(t, rec, decoded)
	}
}

func TestRecordCodec_StoredShape(t *testing.T) {
	q := entities.NewQuestion("r1", "s@school.edu", "x", time.UnixMilli(5))
	item, err := encodeRecord(q)
	require.NoError(t, err)

	assert.Equal(t, &types.AttributeValueMemberS{Value: "true"}, item["active"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "false"}, item["needTeacher"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "ROOM#r1"}, item["PK"])
}

func TestRecordCodec_RejectsUnknownPrefix(t *testing.T) {
	_, err := decodeRecord(sItem("LOCK#x", "LOCK"))
	assert.ErrorIs(t, err, valueobjects.ErrMalformedKey)

	_, err = decodeRecord(Item{"PK": &types.AttributeValueMemberS{Value: "ROOM#a"}})
	assert.ErrorIs(t, err, valueobjects.ErrMalformedKey)
}

func TestRoomRepository_WrongVariantIsInternal(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)
	q := entities.NewQuestion("r1", "a@b.com", "x", time.UnixMilli(1))
	item, err := encodeRecord(q)
	require.NoError(t, err)
	client.On("GetItem", ctx, mock.Anything).Return(&dynamodb.GetItemOutput{Item: item}, nil)

	repo := NewRoomRepository(NewEntityStore(client, testTable, fastRetry, zap.NewNop()))
	_, err = repo.Get(ctx, "r1")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsInternal(err))
}

func TestRoomRepository_ListByTeacherQueriesCreatedAtIndex(t *testing.T) {
	ctx := context.Background()
	client := new(mockDBClient)

	var items []Item
	for _, ts := range []int64{1002, 1001, 1000} {
		room := entities.NewRoom("t1", valueobjects.NewRandomRoomCode(), time.Unix(ts, 0))
		room.Active = false
		item, err := encodeRecord(room)
		require.NoError(t, err)
		items = append(items, item)
	}
	client.On("Query", ctx, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return *in.IndexName == IndexTeacherRooms && !*in.ScanIndexForward
	})).Return(&dynamodb.QueryOutput{Items: items}, nil).Once()

	repo := NewRoomRepository(NewEntityStore(client, testTable, fastRetry, zap.NewNop()))
	rooms, err := repo.ListByTeacher(ctx, "t1", 1, 15)

	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, int64(1002), rooms[0].CreatedAt)
	assert.Equal(t, int64(1000), rooms[2].CreatedAt)
	client.AssertExpectations(t)
}

func TestTableDefinitions_TeacherRoomsIndexSortsByCreatedAt(t *testing.T) {
	defs := TableDefinitions(TableNames{Entities: "E", Users: "U", Schools: "S"})

	var found bool
	for _, idx := range defs[0].GlobalSecondaryIndexes {
		if *idx.IndexName != IndexTeacherRooms {
			continue
		}
		found = true
		require.Len(t, idx.KeySchema, 2)
		assert.Equal(t, "teacherId", *idx.KeySchema[0].AttributeName)
		assert.Equal(t, "createdAt", *idx.KeySchema[1].AttributeName)
		assert.Equal(t, types.KeyTypeRange, idx.KeySchema[1].KeyType)
	}
	assert.True(t, found)

	var createdAt *types.AttributeDefinition
	for i, def := range defs[0].AttributeDefinitions {
		if *def.AttributeName == "createdAt" {
			createdAt = &defs[0].AttributeDefinitions[i]
		}
	}
	require.NotNil(t, createdAt)
	assert.Equal(t, types.ScalarAttributeTypeN, createdAt.AttributeType)
}
