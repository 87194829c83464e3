package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"seven digits", "1234567", "1234567", true},
		{"zero", "0", "0000000", true},
		{"short code padded", "42", "0000042", true},
		{"upper bound", "9999999", "9999999", true},
		{"too large", "10000000", "", false},
		{"negative", "-1", "", false},
		{"letters", "12a4567", "", false},
		{"empty", "", "", false},
		{"float", "1.5", "", false},
		{"spaces", " 123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := ParseRoomCode(tt.input)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidRoomCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code.String())
		})
	}
}

func TestNewRandomRoomCode_InRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		c := NewRandomRoomCode()
		assert.GreaterOrEqual(t, c.Int(), 0)
		assert.LessOrEqual(t, c.Int(), MaxRoomCode)
		assert.Len(t, c.String(), RoomCodeLength)
	}
}

func TestKeys(t *testing.T) {
	room := RoomKey("r1")
	assert.Equal(t, room.PK, room.SK)
	assert.Equal(t, "ROOM#r1", room.PK)

	q := QuestionKey("r1", 1700000000000, "q1")
	assert.Equal(t, "ROOM#r1", q.PK)
	assert.Equal(t, "QUESTION#1700000000000#q1", q.SK)

	m := MessageKey("q1", 1700000000001, "m1")
	assert.Equal(t, "QUESTION#q1", m.PK)
	assert.Equal(t, "MESSAGE#1700000000001#m1", m.SK)
}

func TestParseTimestampedSK(t *testing.T) {
	ts, id, err := ParseTimestampedSK("QUESTION#1700000000000#abc", PrefixQuestion)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), ts)
	assert.Equal(t, "abc", id)

	_, _, err = ParseTimestampedSK("MESSAGE#1#abc", PrefixQuestion)
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, _, err = ParseTimestampedSK("QUESTION#notanumber#abc", PrefixQuestion)
	assert.ErrorIs(t, err, ErrMalformedKey)

	_, _, err = ParseTimestampedSK("QUESTION#1", PrefixQuestion)
	assert.ErrorIs(t, err, ErrMalformedKey)
}

func TestIsUUID(t *testing.T) {
	assert.True(t, IsUUID(NewID()))
	assert.False(t, IsUUID("not-a-uuid"))
	assert.False(t, IsUUID("{12345678-1234-1234-1234-123456789abc}"))
}
