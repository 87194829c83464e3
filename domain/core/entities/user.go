package entities

import (
	"regexp"
	"slices"
	"time"

	"handswers-backend/domain/core/valueobjects"
)

type UserType string

const (
	UserTypeStudent UserType = "student"
	UserTypeTeacher UserType = "teacher"
	UserTypeOther   UserType = "other"
)

func (t UserType) Valid() bool {
	switch t {
	case UserTypeStudent, UserTypeTeacher, UserTypeOther:
		return true
	}
	return false
}

const (
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// NeverExpires marks an account without an expiration date.
const NeverExpires int64 = -1

// User is a registered account. Only administrators create users.
type User struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	Type              UserType `json:"type"`
	School            string   `json:"school"`
	Enabled           bool     `json:"enabled"`
	AccountExpiration int64    `json:"accountExpiration"`
	Roles             []string `json:"roles"`
	CreatedAt         int64    `json:"createdAt"`
}

// NewUser creates an enabled, non-expiring account. Teachers get the
// room-creator role.
func NewUser(email string, userType UserType, schoolID string, now time.Time) *User {
	roles := []string{}
	if userType == UserTypeTeacher {
		roles = append(roles, RoleCreator)
	}
	return &User{
		ID:                valueobjects.NewID(),
		Email:             email,
		Type:              userType,
		School:            schoolID,
		Enabled:           true,
		AccountExpiration: NeverExpires,
		Roles:             roles,
		CreatedAt:         now.Unix(),
	}
}

func (u *User) HasRole(role string) bool { return slices.Contains(u.Roles, role) }

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.(com|org|edu|net)$`)

// ValidEmail applies the address pattern accepted for account creation.
func ValidEmail(email string) bool { return emailPattern.MatchString(email) }

// School is an institution users belong to.
type School struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"createdAt"`
}

func NewSchool(name, address string, now time.Time) *School {
	return &School{
		ID:        valueobjects.NewID(),
		Name:      name,
		Address:   address,
		CreatedAt: now.Unix(),
	}
}
