package ports

import (
	"context"
	"errors"

	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
)

var (
	// ErrNotFound is returned when the addressed item does not exist.
	ErrNotFound = errors.New("item not found")

	// ErrNoUpdate is returned for an update that sets no attribute. No
	// store call is made.
	ErrNoUpdate = errors.New("no attributes to update")
)

// BatchResult summarises a best-effort batch write.
type BatchResult struct {
	Requested   int
	Processed   int
	Unprocessed int
	Requests    int
}

// RoomRepository stores room header records.
type RoomRepository interface {
	Get(ctx context.Context, roomID string) (*entities.Room, error)
	Create(ctx context.Context, room *entities.Room) error
	Update(ctx context.Context, roomID string, upd entities.RoomUpdate) (*entities.Room, error)

	// Delete removes the header and returns it as it was.
	Delete(ctx context.Context, roomID string) (*entities.Room, error)

	FindActiveByTeacher(ctx context.Context, teacherID string) ([]*entities.Room, error)
	FindActiveByCode(ctx context.Context, code valueobjects.RoomCode) ([]*entities.Room, error)

	// ListByTeacher returns one page of the teacher's rooms, newest first.
	ListByTeacher(ctx context.Context, teacherID string, page, pageSize int) ([]*entities.Room, error)
}

// QuestionRepository stores questions inside room partitions.
type QuestionRepository interface {
	Get(ctx context.Context, roomID string, timestamp int64, questionID string) (*entities.Question, error)
	Create(ctx context.Context, q *entities.Question) error
	Update(ctx context.Context, key valueobjects.Key, upd entities.QuestionUpdate) (*entities.Question, error)

	// ListByRoom returns one page of a room's questions, newest first.
	ListByRoom(ctx context.Context, roomID string, page, pageSize int) ([]*entities.Question, error)

	// FirstKeysByRoom returns up to limit question keys of the room.
	FirstKeysByRoom(ctx context.Context, roomID string, limit int) ([]valueobjects.Key, error)
}

// MessageRepository stores chat turns inside question partitions.
type MessageRepository interface {
	// CreatePair writes both turns of one exchange.
	CreatePair(ctx context.Context, user, model *entities.Message) error

	// ListByQuestion returns one page of a thread, newest first.
	ListByQuestion(ctx context.Context, questionID string, page, pageSize int) ([]*entities.Message, error)

	// FirstKeysByRoom returns up to limit message keys belonging to the room.
	FirstKeysByRoom(ctx context.Context, roomID string, limit int) ([]valueobjects.Key, error)
}

// EntityCleaner deletes arbitrary Entities table keys in batches.
// Leftovers after retries are reported in the result, not as an error.
type EntityCleaner interface {
	DeleteKeys(ctx context.Context, keys []valueobjects.Key) (BatchResult, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) ([]*entities.User, error)
	GetBySchoolAndType(ctx context.Context, schoolID string, userType entities.UserType, page, pageSize int) ([]*entities.User, error)
	CreateMany(ctx context.Context, users []*entities.User) (BatchResult, error)
	Update(ctx context.Context, id string, upd entities.UserUpdate) (*entities.User, error)
	Delete(ctx context.Context, id string) (*entities.User, error)
}

// SchoolRepository stores schools.
type SchoolRepository interface {
	GetAll(ctx context.Context, page, pageSize int) ([]*entities.School, error)
	GetByID(ctx context.Context, id string) (*entities.School, error)
	GetByName(ctx context.Context, name string) ([]*entities.School, error)
	Create(ctx context.Context, school *entities.School) error
	Update(ctx context.Context, id string, upd entities.SchoolUpdate) (*entities.School, error)
	Delete(ctx context.Context, id string) (*entities.School, error)
}

// ErrLockHeld is returned by Locker.TryAcquire when the lease is taken.
var ErrLockHeld = errors.New("lock held by another owner")
