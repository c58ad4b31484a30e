package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u, err := NewUser("u1", "alice")
	require.NoError(t, err)
	assert.Equal(t, UserID("u1"), u.ID)
	assert.Equal(t, "alice", u.Username)

	_, err = NewUser("", "alice")
	assert.ErrorIs(t, err, ErrUserIDEmpty)
	_, err = NewUser(UserID(strings.Repeat("x", MaxUserIDLen+1)), "")
	assert.ErrorIs(t, err, ErrUserIDTooLong)
	_, err = NewUser("u1", strings.Repeat("x", MaxUsernameLen+1))
	assert.ErrorIs(t, err, ErrUsernameTooLong)
}

func TestRoomIDValidate(t *testing.T) {
	assert.NoError(t, NewRoomID().Validate())
	assert.ErrorIs(t, RoomID("").Validate(), ErrRoomIDInvalid)
	assert.ErrorIs(t, RoomID(strings.Repeat("r", MaxRoomIDLen+1)).Validate(), ErrRoomIDInvalid)
}

func TestRoomTypeValid(t *testing.T) {
	assert.True(t, RoomTypeP2P.Valid())
	assert.True(t, RoomTypeSFU.Valid())
	assert.False(t, RoomType("mesh").Valid())
}

func TestMeetingHasParticipant(t *testing.T) {
	m := &Meeting{Participants: []UserID{"a", "b"}}
	assert.True(t, m.HasParticipant("b"))
	assert.False(t, m.HasParticipant("c"))
}

func TestChatMessageValidate(t *testing.T) {
	m := &ChatMessage{Body: "  hi  "}
	require.NoError(t, m.Validate())
	assert.Equal(t, "hi", m.Body)

	assert.ErrorIs(t, (&ChatMessage{Body: "   "}).Validate(), ErrEmptyMessage)
	assert.ErrorIs(t, (&ChatMessage{Attachment: &Attachment{Name: "x"}}).Validate(), ErrEmptyMessage)
	assert.NoError(t, (&ChatMessage{Attachment: &Attachment{Name: "x", URL: "/uploads/x"}}).Validate())

	long := &ChatMessage{Body: strings.Repeat("a", MaxMessageLen+10)}
	require.NoError(t, long.Validate())
	assert.Len(t, long.Body, MaxMessageLen)

	split := &ChatMessage{Body: strings.Repeat("a", MaxMessageLen-1) + "é"}
	require.NoError(t, split.Validate())
	assert.True(t, utf8.ValidString(split.Body))
	assert.Len(t, split.Body, MaxMessageLen-1)
}

func TestTruncateKeepsCharactersWhole(t *testing.T) {
	assert.Equal(t, "héllo", Truncate("héllo", 10))
	assert.Equal(t, "h", Truncate("héllo", 2))
	assert.Equal(t, "hé", Truncate("héllo", 3))
	assert.Equal(t, "", Truncate("日本", 2))
	assert.Equal(t, "日", Truncate("日本", 4))
}

func TestAttachmentKinds(t *testing.T) {
	var none *Attachment
	assert.True(t, none.Empty())
	assert.False(t, none.Inline())
	assert.True(t, (&Attachment{Data: "data:..."}).Inline())
	assert.False(t, (&Attachment{URL: "/uploads/a.png"}).Inline())
}
