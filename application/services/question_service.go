package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
	"handswers-backend/domain/events"
	pkgerrors "handswers-backend/pkg/errors"
)

// QuestionRef addresses a question by its full sort key.
type QuestionRef struct {
	RoomID     string
	QuestionID string
	Timestamp  int64
}

func (r QuestionRef) Key() valueobjects.Key {
	return valueobjects.QuestionKey(r.RoomID, r.Timestamp, r.QuestionID)
}

// CreatedQuestion carries what the client needs to address the question.
type CreatedQuestion struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// QuestionService lets students ask and manage their questions.
type QuestionService struct {
	rooms     ports.RoomRepository
	questions ports.QuestionRepository
	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewQuestionService(
	rooms ports.RoomRepository,
	questions ports.QuestionRepository,
	publisher ports.EventPublisher,
	logger *zap.Logger,
) *QuestionService {
	return &QuestionService{
		rooms:     rooms,
		questions: questions,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create posts a question into an active room.
func (s *QuestionService) Create(ctx context.Context, caller Caller, roomID, content string) (*CreatedQuestion, error) {
	if !valueobjects.IsUUID(roomID) {
		return nil, pkgerrors.NewNotFoundError("Room not found.")
	}
	if !entities.ValidContent(content) {
		return nil, pkgerrors.NewValidationError("Invalid question.")
	}

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, notFoundAs(err, "Question room not found.")
	}
	if !room.Active {
		return nil, pkgerrors.NewNotFoundError("Question room not found.")
	}

	q := entities.NewQuestion(roomID, caller.Email, content, s.now())
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, err
	}

	s.logger.Debug("Question created", zap.String("roomId", roomID), zap.String("questionId", q.ID))
	return &CreatedQuestion{ID: q.ID, Timestamp: q.Timestamp}, nil
}

// RequestHelp flags an open question for the teacher.
func (s *QuestionService) RequestHelp(ctx context.Context, caller Caller, ref QuestionRef) error {
	q, err := s.authored(ctx, caller, ref)
	if err != nil {
		return err
	}
	if !q.Active {
		return pkgerrors.NewValidationError("Question is closed.")
	}

	if _, err := s.questions.Update(ctx, ref.Key(), entities.QuestionUpdate{NeedTeacher: entities.Bool(true)}); err != nil {
		return notFoundAs(err, "Question not found.")
	}

	publish(ctx, s.publisher, s.logger, events.NewHelpRequested(q.ID, q.RoomID, q.Author, s.now()))
	return nil
}

// Close ends the question's thread. Further messages are rejected.
func (s *QuestionService) Close(ctx context.Context, caller Caller, ref QuestionRef) error {
	if _, err := s.authored(ctx, caller, ref); err != nil {
		return err
	}
	if _, err := s.questions.Update(ctx, ref.Key(), entities.QuestionUpdate{Active: entities.Bool(false)}); err != nil {
		return notFoundAs(err, "Question not found.")
	}
	return nil
}

// authored loads the question and checks that caller wrote it.
func (s *QuestionService) authored(ctx context.Context, caller Caller, ref QuestionRef) (*entities.Question, error) {
	q, err := loadQuestion(ctx, s.questions, ref)
	if err != nil {
		return nil, err
	}
	if !q.AuthoredBy(caller.Email) {
		return nil, pkgerrors.NewForbiddenError("Invalid permission.")
	}
	return q, nil
}

func loadQuestion(ctx context.Context, questions ports.QuestionRepository, ref QuestionRef) (*entities.Question, error) {
	if !valueobjects.IsUUID(ref.RoomID) {
		return nil, pkgerrors.NewNotFoundError("Room not found.")
	}
	if !valueobjects.IsUUID(ref.QuestionID) {
		return nil, pkgerrors.NewNotFoundError("Question not found.")
	}
	q, err := questions.Get(ctx, ref.RoomID, ref.Timestamp, ref.QuestionID)
	if err != nil {
		return nil, notFoundAs(err, "Question not found.")
	}
	return q, nil
}
