package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	pkgerrors "handswers-backend/pkg/errors"
)

const (
	// HistoryPageSize is the page size of a thread's message history.
	HistoryPageSize = 20

	// DefaultContextTurns is how many earlier turns go back to the model.
	DefaultContextTurns = 16
)

// MessageService runs the tutoring conversation under a question.
type MessageService struct {
	rooms        ports.RoomRepository
	questions    ports.QuestionRepository
	messages     ports.MessageRepository
	tutor        ports.Tutor
	metrics      ports.BusinessMetrics
	logger       *zap.Logger
	contextTurns int
	now          func() time.Time
}

func NewMessageService(
	rooms ports.RoomRepository,
	questions ports.QuestionRepository,
	messages ports.MessageRepository,
	tutor ports.Tutor,
	metrics ports.BusinessMetrics,
	logger *zap.Logger,
	contextTurns int,
) *MessageService {
	if contextTurns <= 0 {
		contextTurns = DefaultContextTurns
	}
	return &MessageService{
		rooms:        rooms,
		questions:    questions,
		messages:     messages,
		tutor:        tutor,
		metrics:      metrics,
		logger:       logger,
		contextTurns: contextTurns,
		now:          time.Now,
	}
}

// History returns one page of a thread, newest first. The author may
// read it, and so may the creator who owns the room.
func (s *MessageService) History(ctx context.Context, caller Caller, ref QuestionRef, page int) ([]*entities.Message, error) {
	q, err := loadQuestion(ctx, s.questions, ref)
	if err != nil {
		return nil, err
	}

	if !q.AuthoredBy(caller.Email) {
		if !caller.IsCreator() {
			return nil, pkgerrors.NewForbiddenError("Access denied.")
		}
		room, err := s.rooms.Get(ctx, ref.RoomID)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if room == nil || !room.OwnedBy(caller.UserID) {
			return nil, pkgerrors.NewForbiddenError("Access denied.")
		}
	}

	return s.messages.ListByQuestion(ctx, ref.QuestionID, page, HistoryPageSize)
}

// Send appends the student's message and the tutor's reply to the
// thread and returns the reply.
func (s *MessageService) Send(ctx context.Context, caller Caller, ref QuestionRef, content string) (string, error) {
	if !entities.ValidContent(content) {
		return "", pkgerrors.NewValidationError("Invalid message.")
	}

	room, err := s.rooms.Get(ctx, ref.RoomID)
	if err != nil {
		return "", notFoundAs(err, "Question room not found.")
	}
	if !room.Active {
		return "", pkgerrors.NewNotFoundError("Question room not found.")
	}

	q, err := loadQuestion(ctx, s.questions, ref)
	if err != nil {
		return "", err
	}
	if !q.Active {
		return "", pkgerrors.NewNotFoundError("Question not found.")
	}
	if !q.AuthoredBy(caller.Email) {
		return "", pkgerrors.NewForbiddenError("Invalid permission.")
	}

	recent, err := s.messages.ListByQuestion(ctx, q.ID, 1, s.contextTurns)
	if err != nil {
		return "", err
	}
	turns := buildConversation(q, recent, content)

	start := s.now()
	reply, err := s.tutor.Reply(ctx, turns)
	s.metrics.RecordLatency(ctx, "TutorReply", s.now().Sub(start))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", pkgerrors.NewInternalError("Error while generating response.")
	}

	user, model := entities.NewExchange(q, s.now().UnixMilli(), content, reply)
	if err := s.messages.CreatePair(ctx, user, model); err != nil {
		return "", err
	}

	s.logger.Debug("Tutor replied",
		zap.String("questionId", q.ID),
		zap.Int("contextTurns", len(recent)),
	)
	return reply, nil
}

// buildConversation orders the newest-first history oldest first and
// frames it with the main question and the new message.
func buildConversation(q *entities.Question, newestFirst []*entities.Message, content string) []ports.ChatTurn {
	history := slices.Clone(newestFirst)
	slices.Reverse(history)

	turns := make([]ports.ChatTurn, 0, len(history)+2)
	turns = append(turns, ports.ChatTurn{Role: string(entities.AuthorUser), Text: "Main question: " + q.Content})
	for _, m := range history {
		turns = append(turns, ports.ChatTurn{Role: string(m.Author), Text: m.Content})
	}
	return append(turns, ports.ChatTurn{Role: string(entities.AuthorUser), Text: content})
}
