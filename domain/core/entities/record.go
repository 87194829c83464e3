package entities

import "handswers-backend/domain/core/valueobjects"

// Kind names the variants stored in the Entities table.
type Kind string

const (
	KindRoom     Kind = "room"
	KindQuestion Kind = "question"
	KindMessage  Kind = "message"
)

// Record is one item of the Entities table: exactly one of *Room,
// *Question or *Message. The set is closed; the persistence layer picks
// the variant from the sort-key prefix.
type Record interface {
	Key() valueobjects.Key
	Kind() Kind
	isRecord()
}

func (*Room) isRecord()     {}
func (*Question) isRecord() {}
func (*Message) isRecord()  {}

func (*Room) Kind() Kind     { return KindRoom }
func (*Question) Kind() Kind { return KindQuestion }
func (*Message) Kind() Kind  { return KindMessage }

// Attribute names shared by the Entities table items and indexes.
const (
	AttrPK          = "PK"
	AttrSK          = "SK"
	AttrRoomCode    = "roomCode"
	AttrTeacherID   = "teacherId"
	AttrActive      = "active"
	AttrAuthor      = "author"
	AttrContent     = "content"
	AttrNeedTeacher = "needTeacher"
	AttrRoomID      = "roomId"
	AttrCreatedAt   = "createdAt"
)

// FlagString renders a flag the way indexed flag attributes are stored.
func FlagString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
