package entities

import (
	"time"

	"handswers-backend/domain/core/valueobjects"
)

// Room is a teacher-owned question session.
type Room struct {
	ID        string                `json:"roomId"`
	Code      valueobjects.RoomCode `json:"roomCode"`
	TeacherID string                `json:"teacherId"`
	Active    bool                  `json:"active"`
	CreatedAt int64                 `json:"createdAt"`
}

// NewRoom opens a fresh active room.
func NewRoom(teacherID string, code valueobjects.RoomCode, now time.Time) *Room {
	return &Room{
		ID:        valueobjects.NewID(),
		Code:      code,
		TeacherID: teacherID,
		Active:    true,
		CreatedAt: now.Unix(),
	}
}

func (r *Room) Key() valueobjects.Key { return valueobjects.RoomKey(r.ID) }

// OwnedBy reports whether userID is the room's teacher.
func (r *Room) OwnedBy(userID string) bool { return r.TeacherID == userID }

// RoomCodeString is what clients see as the join code.
func (r *Room) RoomCodeString() string { return r.Code.String() }
