package valueobjects

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key prefixes of the Entities table. A room header uses the same value
// for both halves of its key.
const (
	PrefixRoom     = "ROOM#"
	PrefixQuestion = "QUESTION#"
	PrefixMessage  = "MESSAGE#"
)

// Key is the composite primary key of an Entities item.
type Key struct {
	PK string
	SK string
}

func (k Key) String() string { return k.PK + "|" + k.SK }

func RoomKey(roomID string) Key {
	return Key{PK: PrefixRoom + roomID, SK: PrefixRoom + roomID}
}

func QuestionKey(roomID string, timestampMs int64, questionID string) Key {
	return Key{
		PK: PrefixRoom + roomID,
		SK: fmt.Sprintf("%s%d#%s", PrefixQuestion, timestampMs, questionID),
	}
}

func MessageKey(questionID string, timestampMs int64, messageID string) Key {
	return Key{
		PK: PrefixQuestion + questionID,
		SK: fmt.Sprintf("%s%d#%s", PrefixMessage, timestampMs, messageID),
	}
}

// QuestionPartition is the partition holding a question's messages.
func QuestionPartition(questionID string) string { return PrefixQuestion + questionID }

// RoomPartition is the partition holding a room header and its questions.
func RoomPartition(roomID string) string { return PrefixRoom + roomID }

var ErrMalformedKey = errors.New("malformed key")

// ParseTimestampedSK splits "PREFIX{ts}#{id}" into its timestamp and id.
func ParseTimestampedSK(sk, prefix string) (int64, string, error) {
	rest, ok := strings.CutPrefix(sk, prefix)
	if !ok {
		return 0, "", fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedKey, sk, prefix)
	}
	tsPart, id, ok := strings.Cut(rest, "#")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("%w: %q", ErrMalformedKey, sk)
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q: %v", ErrMalformedKey, sk, err)
	}
	return ts, id, nil
}

// TrimPrefix strips a known prefix from a partition or sort key.
func TrimPrefix(key, prefix string) (string, error) {
	id, ok := strings.CutPrefix(key, prefix)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q lacks prefix %q", ErrMalformedKey, key, prefix)
	}
	return id, nil
}

// IsUUID reports whether s is a canonical UUID.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// NewID returns a fresh random identifier.
func NewID() string { return uuid.New().String() }
