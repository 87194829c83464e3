package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
	"handswers-backend/domain/events"
	pkgerrors "handswers-backend/pkg/errors"
)

const (
	// RoomPageSize is the page size for questions in a room and for a
	// teacher's room history.
	RoomPageSize = 15

	// cascadePageSize is how many keys one drain step removes.
	cascadePageSize = 100
	// staleRounds bounds how often drain re-reads a page made only of
	// keys it already deleted, which an index that lags its table returns.
	staleRounds = 3

	codeAttempts   = 5
	createLockTTL  = 10 * time.Second
	createLockName = "room-create#"
)

// RoomView is a room header together with one page of its questions.
type RoomView struct {
	Room      *entities.Room       `json:"room"`
	Questions []*entities.Question `json:"questions"`
}

// CreatedRoom is returned to the teacher after creating a room.
type CreatedRoom struct {
	RoomID   string `json:"roomId"`
	RoomCode string `json:"roomCode"`
}

// DeletedRoom summarises a cascading delete.
type DeletedRoom struct {
	RoomID           string `json:"roomId"`
	QuestionsDeleted int    `json:"questionsDeleted"`
	MessagesDeleted  int    `json:"messagesDeleted"`
}

// RoomService owns the room lifecycle.
type RoomService struct {
	rooms     ports.RoomRepository
	questions ports.QuestionRepository
	messages  ports.MessageRepository
	cleaner   ports.EntityCleaner
	locker    ports.Locker
	publisher ports.EventPublisher
	metrics   ports.BusinessMetrics
	logger    *zap.Logger

	now       func() time.Time
	newCode   func() valueobjects.RoomCode
	staleWait time.Duration
}

func NewRoomService(
	rooms ports.RoomRepository,
	questions ports.QuestionRepository,
	messages ports.MessageRepository,
	cleaner ports.EntityCleaner,
	locker ports.Locker,
	publisher ports.EventPublisher,
	metrics ports.BusinessMetrics,
	logger *zap.Logger,
) *RoomService {
	return &RoomService{
		rooms:     rooms,
		questions: questions,
		messages:  messages,
		cleaner:   cleaner,
		locker:    locker,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		newCode:   valueobjects.NewRandomRoomCode,
		staleWait: 250 * time.Millisecond,
	}
}

// Create opens a new room for the teacher. A teacher may have only one
// active room at a time.
func (s *RoomService) Create(ctx context.Context, caller Caller) (*CreatedRoom, error) {
	teacherID := caller.UserID

	// The lease only narrows the check-then-write window. If the lock
	// store is unavailable we fall back to the plain check.
	lock, err := s.locker.TryAcquire(ctx, createLockName+teacherID, teacherID, createLockTTL)
	switch {
	case errors.Is(err, ports.ErrLockHeld):
		return nil, pkgerrors.NewConflictError("Room creation already in progress.")
	case err != nil:
		s.logger.Warn("Room creation lock unavailable", zap.String("teacherId", teacherID), zap.Error(err))
	default:
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release room creation lock", zap.Error(err))
			}
		}()
	}

	active, err := s.rooms.FindActiveByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if len(active) > 0 {
		return nil, pkgerrors.NewForbiddenError("You already have an active room.")
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	room := entities.NewRoom(teacherID, code, s.now())
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("Room created",
		zap.String("roomId", room.ID),
		zap.String("teacherId", teacherID),
	)
	s.publish(ctx, events.NewRoomCreated(room.ID, teacherID, code.String(), s.now()))
	s.metrics.RecordBusinessMetric(ctx, "RoomsCreated", 1, nil)

	return &CreatedRoom{RoomID: room.ID, RoomCode: code.String()}, nil
}

// uniqueCode draws codes until one is not used by an active room.
func (s *RoomService) uniqueCode(ctx context.Context) (valueobjects.RoomCode, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := s.newCode()
		taken, err := s.rooms.FindActiveByCode(ctx, code)
		if err != nil {
			return valueobjects.RoomCode{}, err
		}
		if len(taken) == 0 {
			return code, nil
		}
		s.logger.Debug("Room code collision", zap.String("code", code.String()), zap.Int("attempt", attempt+1))
	}
	return valueobjects.RoomCode{}, pkgerrors.NewInternalError("could not allocate a free room code")
}

// Verify resolves a room code typed by a student to the active room id.
func (s *RoomService) Verify(ctx context.Context, rawCode string) (string, error) {
	code, err := valueobjects.ParseRoomCode(rawCode)
	if err != nil {
		return "", pkgerrors.NewValidationError("Invalid room number.")
	}

	rooms, err := s.rooms.FindActiveByCode(ctx, code)
	if err != nil {
		return "", err
	}
	if len(rooms) == 0 {
		return "", pkgerrors.NewNotFoundError("Question room not found.")
	}
	if len(rooms) > 1 {
		s.logger.Warn("Room code shared by several active rooms", zap.String("code", code.String()), zap.Int("rooms", len(rooms)))
	}
	return rooms[0].ID, nil
}

// Get returns the room and one page of its questions to the owner.
func (s *RoomService) Get(ctx context.Context, caller Caller, roomID string, page int) (*RoomView, error) {
	if !valueobjects.IsUUID(roomID) {
		return nil, pkgerrors.NewNotFoundError("Question room not found.")
	}

	var (
		room      *entities.Room
		questions []*entities.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		room, err = s.rooms.Get(gctx, roomID)
		return notFoundAs(err, "Question room not found.")
	})
	g.Go(func() error {
		var err error
		questions, err = s.questions.ListByRoom(gctx, roomID, page, RoomPageSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !room.OwnedBy(caller.UserID) {
		return nil, pkgerrors.NewForbiddenError("Access denied.")
	}
	return &RoomView{Room: room, Questions: questions}, nil
}

// ListForTeacher pages through a teacher's rooms. Teachers only see
// their own history.
func (s *RoomService) ListForTeacher(ctx context.Context, caller Caller, teacherID string, page int) ([]*entities.Room, error) {
	if teacherID != caller.UserID {
		return nil, pkgerrors.NewForbiddenError("Access denied.")
	}
	return s.rooms.ListByTeacher(ctx, teacherID, page, RoomPageSize)
}

// Close deactivates the room. Its questions stay readable.
func (s *RoomService) Close(ctx context.Context, caller Caller, roomID string) error {
	if _, err := s.ownedRoom(ctx, caller, roomID); err != nil {
		return err
	}

	if _, err := s.rooms.Update(ctx, roomID, entities.RoomUpdate{Active: entities.Bool(false)}); err != nil {
		return notFoundAs(err, "Question room not found.")
	}

	s.logger.Info("Room closed", zap.String("roomId", roomID))
	s.publish(ctx, events.NewRoomClosed(roomID, caller.UserID, s.now()))
	return nil
}

// Delete removes the room header and then sweeps its questions and
// messages. The sweep is best effort: a failure part way leaves
// orphaned records behind and is not resumed.
func (s *RoomService) Delete(ctx context.Context, caller Caller, roomID string) (*DeletedRoom, error) {
	if _, err := s.ownedRoom(ctx, caller, roomID); err != nil {
		return nil, err
	}

	start := s.now()
	if _, err := s.rooms.Delete(ctx, roomID); err != nil {
		return nil, notFoundAs(err, "Question room not found.")
	}

	questions, err := s.drain(ctx, roomID, "questions", s.questions.FirstKeysByRoom)
	if err != nil {
		return nil, err
	}
	messages, err := s.drain(ctx, roomID, "messages", s.messages.FirstKeysByRoom)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Room deleted",
		zap.String("roomId", roomID),
		zap.Int("questionsDeleted", questions),
		zap.Int("messagesDeleted", messages),
	)
	s.publish(ctx, events.NewRoomDeleted(roomID, caller.UserID, questions, messages, s.now()))
	s.metrics.RecordBusinessMetric(ctx, "CascadeDeletedItems", float64(questions+messages), map[string]string{"Entity": "Room"})
	s.metrics.RecordLatency(ctx, "RoomCascadeDelete", s.now().Sub(start))

	return &DeletedRoom{RoomID: roomID, QuestionsDeleted: questions, MessagesDeleted: messages}, nil
}

type keyLister func(ctx context.Context, roomID string, limit int) ([]valueobjects.Key, error)

// drain deletes the first page of keys repeatedly until a short page
// shows the set is exhausted. Keys already deleted are neither resent nor
// counted again.
func (s *RoomService) drain(ctx context.Context, roomID, what string, next keyLister) (int, error) {
	deleted := 0
	seen := make(map[string]struct{})
	stale := 0
	for {
		keys, err := next(ctx, roomID, cascadePageSize)
		if err != nil {
			return deleted, err
		}
		if len(keys) == 0 {
			return deleted, nil
		}

		fresh := make([]valueobjects.Key, 0, len(keys))
		for _, k := range keys {
			if _, ok := seen[k.String()]; !ok {
				fresh = append(fresh, k)
			}
		}
		if len(fresh) == 0 {
			stale++
			if stale > staleRounds {
				s.logger.Warn("Cascade index still returns deleted keys",
					zap.String("roomId", roomID),
					zap.String("entity", what),
					zap.Int("keys", len(keys)),
				)
				return deleted, nil
			}
			if err := sleepCtx(ctx, time.Duration(stale)*s.staleWait); err != nil {
				return deleted, err
			}
			continue
		}
		stale = 0

		res, err := s.cleaner.DeleteKeys(ctx, fresh)
		if err != nil {
			return deleted, err
		}
		deleted += res.Processed
		if res.Unprocessed == 0 {
			for _, k := range fresh {
				seen[k.String()] = struct{}{}
			}
		}

		if len(keys) < cascadePageSize {
			return deleted, nil
		}
		if res.Processed == 0 {
			// Same page would come back again.
			s.logger.Warn("Cascade made no progress",
				zap.String("roomId", roomID),
				zap.String("entity", what),
				zap.Int("remaining", len(fresh)),
			)
			return deleted, nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *RoomService) ownedRoom(ctx context.Context, caller Caller, roomID string) (*entities.Room, error) {
	if !valueobjects.IsUUID(roomID) {
		return nil, pkgerrors.NewNotFoundError("Question room not found.")
	}
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, notFoundAs(err, "Question room not found.")
	}
	if !room.OwnedBy(caller.UserID) {
		return nil, pkgerrors.NewForbiddenError("Access denied.")
	}
	return room, nil
}

func (s *RoomService) publish(ctx context.Context, evt events.DomainEvent) {
	publish(ctx, s.publisher, s.logger, evt)
}
