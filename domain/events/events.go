package events

import "time"

// DomainEvent is something that has happened to a room or question.
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

const (
	TypeRoomCreated   = "room.created"
	TypeRoomClosed    = "room.closed"
	TypeRoomDeleted   = "room.deleted"
	TypeHelpRequested = "question.help_requested"
)

type RoomCreated struct {
	BaseEvent
	TeacherID string `json:"teacher_id"`
	RoomCode  string `json:"room_code"`
}

func NewRoomCreated(roomID, teacherID, code string, at time.Time) RoomCreated {
	return RoomCreated{
		BaseEvent: BaseEvent{AggregateID: roomID, EventType: TypeRoomCreated, Timestamp: at},
		TeacherID: teacherID,
		RoomCode:  code,
	}
}

type RoomClosed struct {
	BaseEvent
	TeacherID string `json:"teacher_id"`
}

func NewRoomClosed(roomID, teacherID string, at time.Time) RoomClosed {
	return RoomClosed{
		BaseEvent: BaseEvent{AggregateID: roomID, EventType: TypeRoomClosed, Timestamp: at},
		TeacherID: teacherID,
	}
}

// RoomDeleted reports how much the cascade removed.
type RoomDeleted struct {
	BaseEvent
	TeacherID        string `json:"teacher_id"`
	QuestionsDeleted int    `json:"questions_deleted"`
	MessagesDeleted  int    `json:"messages_deleted"`
}

func NewRoomDeleted(roomID, teacherID string, questions, messages int, at time.Time) RoomDeleted {
	return RoomDeleted{
		BaseEvent:        BaseEvent{AggregateID: roomID, EventType: TypeRoomDeleted, Timestamp: at},
		TeacherID:        teacherID,
		QuestionsDeleted: questions,
		MessagesDeleted:  messages,
	}
}

type HelpRequested struct {
	BaseEvent
	RoomID string `json:"room_id"`
	Author string `json:"author"`
}

func NewHelpRequested(questionID, roomID, author string, at time.Time) HelpRequested {
	return HelpRequested{
		BaseEvent: BaseEvent{AggregateID: questionID, EventType: TypeHelpRequested, Timestamp: at},
		RoomID:    roomID,
		Author:    author,
	}
}
