package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
)

const activeLookupPageSize = 10

// RoomRepository stores room headers in the Entities table.
type RoomRepository struct {
	store *EntityStore
}

func NewRoomRepository(store *EntityStore) *RoomRepository {
	return &RoomRepository{store: store}
}

func (r *RoomRepository) Get(ctx context.Context, roomID string) (*entities.Room, error) {
	return as[*entities.Room](r.store.Get(ctx, valueobjects.RoomKey(roomID)))
}

func (r *RoomRepository) Create(ctx context.Context, room *entities.Room) error {
	return r.store.Put(ctx, room)
}

func (r *RoomRepository) Update(ctx context.Context, roomID string, upd entities.RoomUpdate) (*entities.Room, error) {
	return as[*entities.Room](r.store.Update(ctx, valueobjects.RoomKey(roomID), upd))
}

func (r *RoomRepository) Delete(ctx context.Context, roomID string) (*entities.Room, error) {
	return as[*entities.Room](r.store.Delete(ctx, valueobjects.RoomKey(roomID)))
}

func (r *RoomRepository) FindActiveByTeacher(ctx context.Context, teacherID string) ([]*entities.Room, error) {
	spec := QuerySpec{
		IndexName: IndexTeacherActiveRooms,
		KeyCondition: expression.Key(entities.AttrTeacherID).Equal(expression.Value(teacherID)).
			And(expression.Key(entities.AttrActive).Equal(expression.Value("true"))),
	}
	return asSlice[*entities.Room](r.store.Query(ctx, spec, 1, activeLookupPageSize))
}

func (r *RoomRepository) FindActiveByCode(ctx context.Context, code valueobjects.RoomCode) ([]*entities.Room, error) {
	spec := QuerySpec{
		IndexName: IndexActiveRoomCode,
		KeyCondition: expression.Key(entities.AttrRoomCode).Equal(expression.Value(code.String())).
			And(expression.Key(entities.AttrActive).Equal(expression.Value("true"))),
	}
	return asSlice[*entities.Room](r.store.Query(ctx, spec, 1, activeLookupPageSize))
}

// ListByTeacher pages through TeacherRoomsIndex by descending createdAt.
func (r *RoomRepository) ListByTeacher(ctx context.Context, teacherID string, page, pageSize int) ([]*entities.Room, error) {
	spec := QuerySpec{
		IndexName:    IndexTeacherRooms,
		KeyCondition: expression.Key(entities.AttrTeacherID).Equal(expression.Value(teacherID)),
		Descending:   true,
	}
	return asSlice[*entities.Room](r.store.Query(ctx, spec, page, pageSize))
}

// QuestionRepository stores questions in their room's partition.
type QuestionRepository struct {
	store *EntityStore
}

func NewQuestionRepository(store *EntityStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

func (r *QuestionRepository) Get(ctx context.Context, roomID string, timestamp int64, questionID string) (*entities.Question, error) {
	return as[*entities.Question](r.store.Get(ctx, valueobjects.QuestionKey(roomID, timestamp, questionID)))
}

func (r *QuestionRepository) Create(ctx context.Context, q *entities.Question) error {
	return r.store.Put(ctx, q)
}

func (r *QuestionRepository) Update(ctx context.Context, key valueobjects.Key, upd entities.QuestionUpdate) (*entities.Question, error) {
	return as[*entities.Question](r.store.Update(ctx, key, upd))
}

func (r *QuestionRepository) ListByRoom(ctx context.Context, roomID string, page, pageSize int) ([]*entities.Question, error) {
	return asSlice[*entities.Question](r.store.Query(ctx, roomQuestionsSpec(roomID, true), page, pageSize))
}

func (r *QuestionRepository) FirstKeysByRoom(ctx context.Context, roomID string, limit int) ([]valueobjects.Key, error) {
	return r.store.QueryKeys(ctx, roomQuestionsSpec(roomID, false), 1, limit)
}

func roomQuestionsSpec(roomID string, descending bool) QuerySpec {
	return QuerySpec{
		KeyCondition: expression.Key(entities.AttrPK).Equal(expression.Value(valueobjects.RoomPartition(roomID))).
			And(expression.Key(entities.AttrSK).BeginsWith(valueobjects.PrefixQuestion)),
		Descending: descending,
	}
}

// MessageRepository stores chat turns in their question's partition.
type MessageRepository struct {
	store *EntityStore
}

func NewMessageRepository(store *EntityStore) *MessageRepository {
	return &MessageRepository{store: store}
}

// CreatePair writes the user turn before the model turn.
func (r *MessageRepository) CreatePair(ctx context.Context, user, model *entities.Message) error {
	if err := r.store.Put(ctx, user); err != nil {
		return err
	}
	return r.store.Put(ctx, model)
}

func (r *MessageRepository) ListByQuestion(ctx context.Context, questionID string, page, pageSize int) ([]*entities.Message, error) {
	spec := QuerySpec{
		KeyCondition: expression.Key(entities.AttrPK).Equal(expression.Value(valueobjects.QuestionPartition(questionID))).
			And(expression.Key(entities.AttrSK).BeginsWith(valueobjects.PrefixMessage)),
		Descending: true,
	}
	return asSlice[*entities.Message](r.store.Query(ctx, spec, page, pageSize))
}

func (r *MessageRepository) FirstKeysByRoom(ctx context.Context, roomID string, limit int) ([]valueobjects.Key, error) {
	spec := QuerySpec{
		IndexName:    IndexMessageRoomID,
		KeyCondition: expression.Key(entities.AttrRoomID).Equal(expression.Value(roomID)),
	}
	return r.store.QueryKeys(ctx, spec, 1, limit)
}

var (
	_ ports.RoomRepository     = (*RoomRepository)(nil)
	_ ports.QuestionRepository = (*QuestionRepository)(nil)
	_ ports.MessageRepository  = (*MessageRepository)(nil)
)
