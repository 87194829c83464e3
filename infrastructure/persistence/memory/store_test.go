package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	"handswers-backend/domain/core/valueobjects"
)

func seedRoom(t *testing.T, s *Store, teacher string, active bool) *entities.Room {
	t.Helper()
	room := entities.NewRoom(teacher, valueobjects.NewRandomRoomCode(), time.Now())
	room.Active = active
	require.NoError(t, s.Rooms().Create(context.Background(), room))
	return room
}

func TestRooms_UpdateRequiresExistingItem(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Rooms().Update(ctx, "missing", entities.RoomUpdate{Active: entities.Bool(false)})
	assert.ErrorIs(t, err, ports.ErrNotFound)

	_, err = s.Rooms().Update(ctx, "missing", entities.RoomUpdate{})
	assert.ErrorIs(t, err, ports.ErrNoUpdate)

	room := seedRoom(t, s, "t1", true)
	updated, err := s.Rooms().Update(ctx, room.ID, entities.RoomUpdate{Active: entities.Bool(false)})
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestRooms_ListByTeacherNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, ts := range []int64{1004, 1001, 1007, 1000, 1003, 1006, 1002, 1005} {
		room := entities.NewRoom("t1", valueobjects.NewRandomRoomCode(), time.Unix(ts, 0))
		room.Active = false
		require.NoError(t, s.Rooms().Create(ctx, room))
	}
	seedRoom(t, s, "t2", true)

	first, err := s.Rooms().ListByTeacher(ctx, "t1", 1, 5)
	require.NoError(t, err)
	second, err := s.Rooms().ListByTeacher(ctx, "t1", 2, 5)
	require.NoError(t, err)

	var got []int64
	for _, room := range append(first, second...) {
		got = append(got, room.CreatedAt)
	}
	assert.Equal(t, []int64{1007, 1006, 1005, 1004, 1003, 1002, 1001, 1000}, got)

	rooms, err := s.Rooms().ListByTeacher(ctx, "t1", 3, 5)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	room := seedRoom(t, s, "t1", true)

	got, err := s.Rooms().Get(ctx, room.ID)
	require.NoError(t, err)
	got.Active = false

	again, err := s.Rooms().Get(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, again.Active)
}

func TestMessages_FirstKeysByRoomAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	room := seedRoom(t, s, "t1", true)
	q := entities.NewQuestion(room.ID, "s@a.edu", "why?", time.UnixMilli(10))
	require.NoError(t, s.Questions().Create(ctx, q))
	for i := 0; i < 3; i++ {
		user, model := entities.NewExchange(q, int64(100+10*i), fmt.Sprint("u", i), fmt.Sprint("m", i))
		require.NoError(t, s.Messages().CreatePair(ctx, user, model))
	}

	keys, err := s.Messages().FirstKeysByRoom(ctx, room.ID, 4)
	require.NoError(t, err)
	assert.Len(t, keys, 4)

	res, err := s.DeleteKeys(ctx, keys)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, s.EntityCount(valueobjects.PrefixQuestion))
	assert.Equal(t, []int{4}, s.DeleteBatchSizes())

	page, err := s.Messages().ListByQuestion(ctx, q.ID, 1, 20)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Greater(t, page[0].Timestamp, page[1].Timestamp)
}

func TestUsers_PagesBySchoolAndType(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	var users []*entities.User
	for i := 0; i < 30; i++ {
		users = append(users, entities.NewUser(fmt.Sprintf("s%02d@a.edu", i), entities.UserTypeStudent, "sch1", time.Now()))
	}
	res, err := s.Users().CreateMany(ctx, users)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Requests)

	page2, err := s.Users().GetBySchoolAndType(ctx, "sch1", entities.UserTypeStudent, 2, 25)
	require.NoError(t, err)
	assert.Len(t, page2, 5)

	_, err = s.Users().Update(ctx, "nobody", entities.UserUpdate{Enabled: entities.Bool(false)})
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestLocker_HeldUntilReleasedOrExpired(t *testing.T) {
	ctx := context.Background()
	l := NewLocker()
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	lock, err := l.TryAcquire(ctx, "room-create#t1", "t1", time.Second)
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, "room-create#t1", "t1", time.Second)
	assert.ErrorIs(t, err, ports.ErrLockHeld)

	require.NoError(t, lock.Release(ctx))
	_, err = l.TryAcquire(ctx, "room-create#t1", "t1", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = l.TryAcquire(ctx, "room-create#t1", "t1", time.Second)
	assert.NoError(t, err)
}
