package valueobjects

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
)

const (
	RoomCodeLength = 7
	MaxRoomCode    = 9_999_999
)

var ErrInvalidRoomCode = errors.New("room code must be a number between 0 and 9999999")

// RoomCode is the short numeric code students type to join a room. It is
// stored zero-padded to seven digits.
type RoomCode struct {
	value int
}

// NewRandomRoomCode draws a code uniformly from the whole code space.
func NewRandomRoomCode() RoomCode {
	return RoomCode{value: rand.Intn(MaxRoomCode + 1)}
}

// ParseRoomCode accepts only ASCII digits whose value fits the code space.
// Leading zeros are allowed, so "42" and "0000042" are the same code.
func ParseRoomCode(raw string) (RoomCode, error) {
	if raw == "" || len(raw) > RoomCodeLength {
		return RoomCode{}, ErrInvalidRoomCode
	}
	for _, c := range raw {
		if c < '0' || c > '9' {
			return RoomCode{}, ErrInvalidRoomCode
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > MaxRoomCode {
		return RoomCode{}, ErrInvalidRoomCode
	}
	return RoomCode{value: n}, nil
}

func (c RoomCode) String() string {
	return fmt.Sprintf("%0*d", RoomCodeLength, c.value)
}

func (c RoomCode) Int() int { return c.value }

func (c RoomCode) Equals(other RoomCode) bool { return c.value == other.value }

// MarshalJSON renders the code as the zero-padded string users type.
func (c RoomCode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}
