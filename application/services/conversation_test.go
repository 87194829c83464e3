package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
	"handswers-backend/domain/events"
	"handswers-backend/infrastructure/persistence/memory"
	pkgerrors "handswers-backend/pkg/errors"
)

var student = Caller{UserID: "student-1", Email: "s@school.edu"}

type classroom struct {
	rooms     *RoomService
	questions *QuestionService
	messages  *MessageService
	tutor     *mockTutor
	publisher *recordingPublisher
	store     *memory.Store
	roomID    string
}

func newClassroom(t *testing.T) *classroom {
	t.Helper()
	f := newRoomFixture()
	clk := newClock()
	tutor := &mockTutor{}

	qs := NewQuestionService(f.store.Rooms(), f.store.Questions(), f.publisher, zap.NewNop())
	qs.now = clk.Now
	ms := NewMessageService(f.store.Rooms(), f.store.Questions(), f.store.Messages(), tutor, nopMetrics{}, zap.NewNop(), 16)
	ms.now = clk.Now

	created, err := f.svc.Create(context.Background(), teacher)
	require.NoError(t, err)

	return &classroom{
		rooms: f.svc, questions: qs, messages: ms, tutor: tutor,
		publisher: f.publisher, store: f.store, roomID: created.RoomID,
	}
}

func (c *classroom) ask(t *testing.T, content string) QuestionRef {
	t.Helper()
	q, err := c.questions.Create(context.Background(), student, c.roomID, content)
	require.NoError(t, err)
	return QuestionRef{RoomID: c.roomID, QuestionID: q.ID, Timestamp: q.Timestamp}
}

func TestQuestionService_CreateValidates(t *testing.T) {
	ctx := context.Background()
	c := newClassroom(t)

	_, err := c.questions.Create(ctx, student, "not-a-uuid", "hi")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = c.questions.Create(ctx, student, c.roomID, "")
	assert.True(t, pkgerrors.IsValidation(err))

	long := make([]rune, entities.MaxContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = c.questions.Create(ctx, student, c.roomID, string(long))
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = c.questions.Create(ctx, student, valueobjects.NewID(), "hi")
	assert.True(t, pkgerrors.IsNotFound(err))

	require.NoError(t, c.rooms.Close(ctx, teacher, c.roomID))
	_, err = c.questions.Create(ctx, student, c.roomID, "hi")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestQuestionService_RequestHelpAndClose(t *testing.T) {
	ctx := context.Background()
	c := newClassroom(t)
	ref := c.ask(t, "What is a derivative?")

	err := c.questions.RequestHelp(ctx, Caller{Email: "other@school.edu"}, ref)
	assert.True(t, pkgerrors.IsForbidden(err))

	require.NoError(t, c.questions.RequestHelp(ctx, student, ref))
	q, err := c.store.Questions().Get(ctx, ref.RoomID, ref.Timestamp, ref.QuestionID)
	require.NoError(t, err)
	assert.True(t, q.NeedTeacher)
	assert.Contains(t, c.publisher.types(), events.TypeHelpRequested)

	require.NoError(t, c.questions.Close(ctx, student, ref))
	err = c.questions.RequestHelp(ctx, student, ref)
	assert.True(t, pkgerrors.IsValidation(err))

	ref.Timestamp++
	err = c.questions.Close(ctx, student, ref)
	assert.True(t, pkgerrors.IsNotFound(err))
}

// A student joins by code, asks, and chats twice with the tutor.
func TestConversation_JoinAskChat(t *testing.T) {
	ctx := context.Background()
	c := newClassroom(t)

	room, err := c.store.Rooms().Get(ctx, c.roomID)
	require.NoError(t, err)
	joined, err := c.rooms.Verify(ctx, room.RoomCodeString())
	require.NoError(t, err)
	require.Equal(t, c.roomID, joined)

	ref := c.ask(t, "Why is the sky blue?")

	c.tutor.On("Reply", mock.Anything, mock.MatchedBy(func(turns []ports.ChatTurn) bool {
		return len(turns) == 2
	})).Return("What happens to light in air?", nil).Once()
	c.tutor.On("Reply", mock.Anything, mock.MatchedBy(func(turns []ports.ChatTurn) bool {
		return len(turns) == 4 &&
			turns[0].Text == "Main question: Why is the sky blue?" &&
			turns[1] == ports.ChatTurn{Role: "user", Text: "hint please"} &&
			turns[2] == ports.ChatTurn{Role: "model", Text: "What happens to light in air?"} &&
			turns[3] == ports.ChatTurn{Role: "user", Text: "it scatters"}
	})).Return("Which colours scatter most?", nil).Once()

	reply, err := c.messages.Send(ctx, student, ref, "hint please")
	require.NoError(t, err)
	assert.Equal(t, "What happens to light in air?", reply)

	_, err = c.messages.Send(ctx, student, ref, "it scatters")
	require.NoError(t, err)
	c.tutor.AssertExpectations(t)

	history, err := c.messages.History(ctx, student, ref, 1)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, entities.AuthorModel, history[0].Author)
	assert.Equal(t, "Which colours scatter most?", history[0].Content)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i-1].Timestamp, history[i].Timestamp)
	}
	assert.Equal(t, history[1].Timestamp+1, history[0].Timestamp)

	// The owning teacher may read the thread, another creator may not.
	_, err = c.messages.History(ctx, teacher, ref, 1)
	assert.NoError(t, err)
	_, err = c.messages.History(ctx, Caller{UserID: "t2", Email: "t2@school.edu", Roles: []string{entities.RoleCreator}}, ref, 1)
	assert.True(t, pkgerrors.IsForbidden(err))
	_, err = c.messages.History(ctx, Caller{UserID: "x", Email: "x@school.edu"}, ref, 1)
	assert.True(t, pkgerrors.IsForbidden(err))
}

func TestMessageService_SendGuards(t *testing.T) {
	ctx := context.Background()
	c := newClassroom(t)
	ref := c.ask(t, "question")

	_, err := c.messages.Send(ctx, student, ref, "")
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = c.messages.Send(ctx, Caller{Email: "other@school.edu"}, ref, "hi")
	assert.True(t, pkgerrors.IsForbidden(err))

	require.NoError(t, c.questions.Close(ctx, student, ref))
	_, err = c.messages.Send(ctx, student, ref, "hi")
	assert.True(t, pkgerrors.IsNotFound(err))

	c.tutor.AssertNotCalled(t, "Reply", mock.Anything, mock.Anything)
}

func TestMessageService_TutorFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	c := newClassroom(t)
	ref := c.ask(t, "question")
	c.tutor.On("Reply", mock.Anything, mock.Anything).Return("", errors.New("quota"))

	_, err := c.messages.Send(ctx, student, ref, "hi")
	require.Error(t, err)

	history, err := c.messages.History(ctx, student, ref, 1)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBuildConversation_KeepsOnlyGivenWindow(t *testing.T) {
	q := &entities.Question{Content: "main"}
	newest := []*entities.Message{
		{Author: entities.AuthorModel, Content: "m2"},
		{Author: entities.AuthorUser, Content: "u2"},
	}

	turns := buildConversation(q, newest, "next")

	assert.Equal(t, []ports.ChatTurn{
		{Role: "user", Text: "Main question: main"},
		{Role: "user", Text: "u2"},
		{Role: "model", Text: "m2"},
		{Role: "user", Text: "next"},
	}, turns)
	assert.Equal(t, "m2", newest[0].Content)
}
