package entities

// FieldSet is one attribute assignment of a partial update.
type FieldSet struct {
	Name  string
	Value interface{}
}

// Update is a partial update of one entity kind. The implementations in
// this file are the only ones; each exposes just the attributes its
// entity allows to change.
type Update interface {
	Fields() []FieldSet
	isUpdate()
}

// RoomUpdate changes a room header.
type RoomUpdate struct {
	Active *bool
}

func (u RoomUpdate) Fields() []FieldSet {
	var out []FieldSet
	if u.Active != nil {
		out = append(out, FieldSet{AttrActive, FlagString(*u.Active)})
	}
	return out
}

// QuestionUpdate changes a question.
type QuestionUpdate struct {
	Active      *bool
	NeedTeacher *bool
}

func (u QuestionUpdate) Fields() []FieldSet {
	var out []FieldSet
	if u.Active != nil {
		out = append(out, FieldSet{AttrActive, FlagString(*u.Active)})
	}
	if u.NeedTeacher != nil {
		out = append(out, FieldSet{AttrNeedTeacher, FlagString(*u.NeedTeacher)})
	}
	return out
}

// UserUpdate changes an account.
type UserUpdate struct {
	Enabled *bool
}

func (u UserUpdate) Fields() []FieldSet {
	var out []FieldSet
	if u.Enabled != nil {
		out = append(out, FieldSet{"enabled", *u.Enabled})
	}
	return out
}

// SchoolUpdate changes a school.
type SchoolUpdate struct {
	Name    *string
	Address *string
}

func (u SchoolUpdate) Fields() []FieldSet {
	var out []FieldSet
	if u.Name != nil {
		out = append(out, FieldSet{"name", *u.Name})
	}
	if u.Address != nil {
		out = append(out, FieldSet{"address", *u.Address})
	}
	return out
}

func (RoomUpdate) isUpdate()     {}
func (QuestionUpdate) isUpdate() {}
func (UserUpdate) isUpdate()     {}
func (SchoolUpdate) isUpdate()   {}

// Bool returns a pointer for update literals.
func Bool(b bool) *bool { return &b }

// String returns a pointer for update literals.
func String(s string) *string { return &s }
