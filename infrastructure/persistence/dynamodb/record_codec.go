package dynamodb

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
)

type roomItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	RoomCode  string `dynamodbav:"roomCode"`
	TeacherID string `dynamodbav:"teacherId"`
	Active    string `dynamodbav:"active"`
	CreatedAt int64  `dynamodbav:"createdAt,omitempty"`
}

type questionItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	Author      string `dynamodbav:"author"`
	Content     string `dynamodbav:"content"`
	Active      string `dynamodbav:"active"`
	NeedTeacher string `dynamodbav:"needTeacher"`
	CreatedAt   int64  `dynamodbav:"createdAt,omitempty"`
}

type messageItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Author    string `dynamodbav:"author"`
	Content   string `dynamodbav:"content"`
	RoomID    string `dynamodbav:"roomId"`
	CreatedAt int64  `dynamodbav:"createdAt,omitempty"`
}

func keyItem(k valueobjects.Key) Item {
	return Item{
		entities.AttrPK: &types.AttributeValueMemberS{Value: k.PK},
		entities.AttrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

func keyFromItem(item Item) (valueobjects.Key, error) {
	pk, ok1 := item[entities.AttrPK].(*types.AttributeValueMemberS)
	sk, ok2 := item[entities.AttrSK].(*types.AttributeValueMemberS)
	if !ok1 || !ok2 {
		return valueobjects.Key{}, fmt.Errorf("%w: item without string PK/SK", valueobjects.ErrMalformedKey)
	}
	return valueobjects.Key{PK: pk.Value, SK: sk.Value}, nil
}

// encodeRecord turns a variant into its stored item.
func encodeRecord(rec entities.Record) (Item, error) {
	k := rec.Key()
	var v interface{}
	switch r := rec.(type) {
	case *entities.Room:
		v = roomItem{
			PK: k.PK, SK: k.SK,
			RoomCode:  r.Code.String(),
			TeacherID: r.TeacherID,
			Active:    entities.FlagString(r.Active),
			CreatedAt: r.CreatedAt,
		}
	case *entities.Question:
		v = questionItem{
			PK: k.PK, SK: k.SK,
			Author:      r.Author,
			Content:     r.Content,
			Active:      entities.FlagString(r.Active),
			NeedTeacher: entities.FlagString(r.NeedTeacher),
			CreatedAt:   r.CreatedAt,
		}
	case *entities.Message:
		v = messageItem{
			PK: k.PK, SK: k.SK,
			Author:    string(r.Author),
			Content:   r.Content,
			RoomID:    r.RoomID,
			CreatedAt: r.CreatedAt,
		}
	default:
		return nil, fmt.Errorf("unsupported record %T", rec)
	}
	return attributevalue.MarshalMap(v)
}

// decodeRecord picks the variant from the sort-key prefix.
func decodeRecord(item Item) (entities.Record, error) {
	key, err := keyFromItem(item)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasPrefix(key.SK, valueobjects.PrefixRoom):
		var it roomItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("decode room %s: %w", key, err)
		}
		if key.PK != key.SK {
			return nil, fmt.Errorf("%w: room header %s", valueobjects.ErrMalformedKey, key)
		}
		id, err := valueobjects.TrimPrefix(key.PK, valueobjects.PrefixRoom)
		if err != nil {
			return nil, err
		}
		code, err := valueobjects.ParseRoomCode(it.RoomCode)
		if err != nil {
			return nil, fmt.Errorf("decode room %s: %w", key, err)
		}
		return &entities.Room{
			ID:        id,
			Code:      code,
			TeacherID: it.TeacherID,
			Active:    it.Active == "true",
			CreatedAt: it.CreatedAt,
		}, nil

	case strings.HasPrefix(key.SK, valueobjects.PrefixQuestion):
		var it questionItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("decode question %s: %w", key, err)
		}
		roomID, err := valueobjects.TrimPrefix(key.PK, valueobjects.PrefixRoom)
		if err != nil {
			return nil, err
		}
		ts, id, err := valueobjects.ParseTimestampedSK(key.SK, valueobjects.PrefixQuestion)
		if err != nil {
			return nil, err
		}
		return &entities.Question{
			ID:          id,
			RoomID:      roomID,
			Timestamp:   ts,
			Author:      it.Author,
			Content:     it.Content,
			Active:      it.Active == "true",
			NeedTeacher: it.NeedTeacher == "true",
			CreatedAt:   it.CreatedAt,
		}, nil

	case strings.HasPrefix(key.SK, valueobjects.PrefixMessage):
		var it messageItem
		if err := attributevalue.UnmarshalMap(item, &it); err != nil {
			return nil, fmt.Errorf("decode message %s: %w", key, err)
		}
		questionID, err := valueobjects.TrimPrefix(key.PK, valueobjects.PrefixQuestion)
		if err != nil {
			return nil, err
		}
		ts, id, err := valueobjects.ParseTimestampedSK(key.SK, valueobjects.PrefixMessage)
		if err != nil {
			return nil, err
		}
		author := entities.MessageAuthor(it.Author)
		if !author.Valid() {
			return nil, fmt.Errorf("decode message %s: unknown author %q", key, it.Author)
		}
		return &entities.Message{
			ID:         id,
			QuestionID: questionID,
			RoomID:     it.RoomID,
			Timestamp:  ts,
			Author:     author,
			Content:    it.Content,
			CreatedAt:  it.CreatedAt,
		}, nil
	}

	return nil, fmt.Errorf("%w: unknown record kind for %s", valueobjects.ErrMalformedKey, key)
}
