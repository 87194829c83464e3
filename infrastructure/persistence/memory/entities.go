package memory

import (
	"context"
	"sort"
	"strings"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
)

type RoomRepository struct{ s *Store }
type QuestionRepository struct{ s *Store }
type MessageRepository struct{ s *Store }

func (s *Store) Rooms() *RoomRepository         { return &RoomRepository{s} }
func (s *Store) Questions() *QuestionRepository { return &QuestionRepository{s} }
func (s *Store) Messages() *MessageRepository   { return &MessageRepository{s} }

func (r *RoomRepository) Get(_ context.Context, roomID string) (*entities.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.get(valueobjects.RoomKey(roomID))
	if !ok {
		return nil, ports.ErrNotFound
	}
	room, ok := rec.(*entities.Room)
	if !ok {
		return nil, ports.ErrNotFound
	}
	return room, nil
}

func (r *RoomRepository) Create(_ context.Context, room *entities.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.put(room)
	return nil
}

func (r *RoomRepository) Update(_ context.Context, roomID string, upd entities.RoomUpdate) (*entities.Room, error) {
	if len(upd.Fields()) == 0 {
		return nil, ports.ErrNoUpdate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.get(valueobjects.RoomKey(roomID))
	if !ok {
		return nil, ports.ErrNotFound
	}
	room := rec.(*entities.Room)
	if upd.Active != nil {
		room.Active = *upd.Active
	}
	r.s.put(room)
	return room, nil
}

func (r *RoomRepository) Delete(_ context.Context, roomID string) (*entities.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.remove(valueobjects.RoomKey(roomID))
	if !ok {
		return nil, ports.ErrNotFound
	}
	return rec.(*entities.Room), nil
}

func (r *RoomRepository) FindActiveByTeacher(_ context.Context, teacherID string) ([]*entities.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return narrow[*entities.Room](r.s.all(func(rec entities.Record) bool {
		room, ok := rec.(*entities.Room)
		return ok && room.Active && room.TeacherID == teacherID
	})), nil
}

func (r *RoomRepository) FindActiveByCode(_ context.Context, code valueobjects.RoomCode) ([]*entities.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return narrow[*entities.Room](r.s.all(func(rec entities.Record) bool {
		room, ok := rec.(*entities.Room)
		return ok && room.Active && room.Code.Equals(code)
	})), nil
}

// ListByTeacher returns newest first; rooms created in the same second
// fall back to id order.
func (r *RoomRepository) ListByTeacher(_ context.Context, teacherID string, page, pageSize int) ([]*entities.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rooms := narrow[*entities.Room](r.s.all(func(rec entities.Record) bool {
		room, ok := rec.(*entities.Room)
		return ok && room.TeacherID == teacherID
	}))
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt != rooms[j].CreatedAt {
			return rooms[i].CreatedAt > rooms[j].CreatedAt
		}
		return rooms[i].ID > rooms[j].ID
	})
	return pageOf(rooms, page, pageSize), nil
}

func (r *QuestionRepository) Get(_ context.Context, roomID string, timestamp int64, questionID string) (*entities.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.get(valueobjects.QuestionKey(roomID, timestamp, questionID))
	if !ok {
		return nil, ports.ErrNotFound
	}
	return rec.(*entities.Question), nil
}

func (r *QuestionRepository) Create(_ context.Context, q *entities.Question) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.put(q)
	return nil
}

func (r *QuestionRepository) Update(_ context.Context, key valueobjects.Key, upd entities.QuestionUpdate) (*entities.Question, error) {
	if len(upd.Fields()) == 0 {
		return nil, ports.ErrNoUpdate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.get(key)
	if !ok {
		return nil, ports.ErrNotFound
	}
	q := rec.(*entities.Question)
	if upd.Active != nil {
		q.Active = *upd.Active
	}
	if upd.NeedTeacher != nil {
		q.NeedTeacher = *upd.NeedTeacher
	}
	r.s.put(q)
	return q, nil
}

func (r *QuestionRepository) ListByRoom(_ context.Context, roomID string, page, pageSize int) ([]*entities.Question, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	recs := r.s.partition(valueobjects.RoomPartition(roomID), valueobjects.PrefixQuestion, true)
	return pageOf(narrow[*entities.Question](recs), page, pageSize), nil
}

func (r *QuestionRepository) FirstKeysByRoom(_ context.Context, roomID string, limit int) ([]valueobjects.Key, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	recs := r.s.partition(valueobjects.RoomPartition(roomID), valueobjects.PrefixQuestion, false)
	return keysOf(pageOf(recs, 1, limit)), nil
}

func (r *MessageRepository) CreatePair(_ context.Context, user, model *entities.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.put(user)
	r.s.put(model)
	return nil
}

func (r *MessageRepository) ListByQuestion(_ context.Context, questionID string, page, pageSize int) ([]*entities.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	recs := r.s.partition(valueobjects.QuestionPartition(questionID), valueobjects.PrefixMessage, true)
	return pageOf(narrow[*entities.Message](recs), page, pageSize), nil
}

func (r *MessageRepository) FirstKeysByRoom(_ context.Context, roomID string, limit int) ([]valueobjects.Key, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	recs := r.s.all(func(rec entities.Record) bool {
		m, ok := rec.(*entities.Message)
		return ok && m.RoomID == roomID && strings.HasPrefix(m.Key().PK, valueobjects.PrefixQuestion)
	})
	return keysOf(pageOf(recs, 1, limit)), nil
}

func keysOf(recs []entities.Record) []valueobjects.Key {
	keys := make([]valueobjects.Key, 0, len(recs))
	for _, rec := range recs {
		keys = append(keys, rec.Key())
	}
	return keys
}

var (
	_ ports.RoomRepository     = (*RoomRepository)(nil)
	_ ports.QuestionRepository = (*QuestionRepository)(nil)
	_ ports.MessageRepository  = (*MessageRepository)(nil)
)
