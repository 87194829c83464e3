package entities

import (
	"handswers-backend/domain/core/valueobjects"
)

// MessageAuthor is the speaker of a chat turn.
type MessageAuthor string

const (
	AuthorUser  MessageAuthor = "user"
	AuthorModel MessageAuthor = "model"
)

func (a MessageAuthor) Valid() bool { return a == AuthorUser || a == AuthorModel }

// Message is one immutable chat turn under a question.
type Message struct {
	ID         string        `json:"-"`
	QuestionID string        `json:"-"`
	RoomID     string        `json:"-"`
	Timestamp  int64         `json:"-"`
	Author     MessageAuthor `json:"author"`
	Content    string        `json:"content"`
	CreatedAt  int64         `json:"createdAt"`
}

func (m *Message) Key() valueobjects.Key {
	return valueobjects.MessageKey(m.QuestionID, m.Timestamp, m.ID)
}

// NewExchange builds the user turn at ts and the model reply at ts+1 so
// the pair sorts in conversation order.
func NewExchange(q *Question, ts int64, userText, modelText string) (*Message, *Message) {
	user := &Message{
		ID:         valueobjects.NewID(),
		QuestionID: q.ID,
		RoomID:     q.RoomID,
		Timestamp:  ts,
		Author:     AuthorUser,
		Content:    userText,
		CreatedAt:  ts,
	}
	model := &Message{
		ID:         valueobjects.NewID(),
		QuestionID: q.ID,
		RoomID:     q.RoomID,
		Timestamp:  ts + 1,
		Author:     AuthorModel,
		Content:    modelText,
		CreatedAt:  ts + 1,
	}
	return user, model
}
