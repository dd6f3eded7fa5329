package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelSet_SeededAndOrdered(t *testing.T) {
	s := NewChannelSet(DefaultChannel)
	assert.Equal(t, []string{"general"}, s.List())
	assert.True(t, s.Has("general"))
	assert.Equal(t, 1, s.Len())
}

func TestChannelSet_AddDeduplicates(t *testing.T) {
	s := NewChannelSet("general")
	s.Add("ops")
	s.Add("ops")
	s.Add("general")
	assert.Equal(t, []string{"general", "ops"}, s.List())
}

func TestChannelSet_RemoveAbsentIsNoop(t *testing.T) {
	s := NewChannelSet("general")
	s.Remove("ops")
	assert.Equal(t, []string{"general"}, s.List())

	s.Remove("general")
	assert.Equal(t, 0, s.Len())
}

func TestChannelSet_Replace(t *testing.T) {
	s := NewChannelSet("general")
	s.Replace([]string{"ops", "dev", "ops"})
	assert.Equal(t, []string{"ops", "dev"}, s.List())
	assert.False(t, s.Has("general"))
}

func TestChannelSet_ListIsACopy(t *testing.T) {
	s := NewChannelSet("general", "ops")
	view := s.List()
	view[0] = "mutated"
	assert.Equal(t, []string{"general", "ops"}, s.List())
}

func TestStateSnapshot_OmitsPassword(t *testing.T) {
	state := &ConnectionState{
		ID:       "id1",
		Name:     "bot",
		Host:     "chat.example.org",
		Username: "bot",
		AutoJoin: true,
		Filter:   true,
		channels: NewChannelSet("general"),
	}
	snap := state.Snapshot()
	assert.Equal(t, "bot", snap.Name)
	assert.False(t, snap.Connected)
	assert.Empty(t, snap.UserID)
	assert.Equal(t, []string{"general"}, snap.Channels)
}
