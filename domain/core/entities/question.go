package entities

import (
	"time"
	"unicode/utf8"

	"handswers-backend/domain/core/valueobjects"
)

// MaxContentLength bounds questions and chat messages, in characters.
const MaxContentLength = 400

// Question anchors a chat thread inside a room.
type Question struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	Timestamp   int64  `json:"timestamp"`
	Author      string `json:"author"`
	Content     string `json:"content"`
	Active      bool   `json:"active"`
	NeedTeacher bool   `json:"needTeacher"`
	CreatedAt   int64  `json:"createdAt"`
}

// NewQuestion creates an open question; its sort key orders by now.
func NewQuestion(roomID, author, content string, now time.Time) *Question {
	ts := now.UnixMilli()
	return &Question{
		ID:        valueobjects.NewID(),
		RoomID:    roomID,
		Timestamp: ts,
		Author:    author,
		Content:   content,
		Active:    true,
		CreatedAt: ts,
	}
}

func (q *Question) Key() valueobjects.Key {
	return valueobjects.QuestionKey(q.RoomID, q.Timestamp, q.ID)
}

func (q *Question) AuthoredBy(email string) bool { return q.Author == email }

// ValidContent reports whether s is a non-empty text of at most
// MaxContentLength characters.
func ValidContent(s string) bool {
	n := utf8.RuneCountInString(s)
	return n > 0 && n <= MaxContentLength
}
