package budgetchat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterRejectsDuplicate(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Register("alice"))
	require.Error(t, b.Register("alice"))
}

func TestSendExcludesSender(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Register("alice"))
	require.NoError(t, b.Register("bob"))

	// Drain join notices.
	_, _ = b.Receive("alice")
	_, _ = b.Receive("bob")

	b.Send("alice", "hello")

	msg, ok := b.Receive("bob")
	require.True(t, ok)
	require.Equal(t, "[alice] hello\n", msg)

	_, ok = b.Receive("alice")
	require.False(t, ok)
}

func TestLogoffAnnouncesDeparture(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Register("alice"))
	require.NoError(t, b.Register("bob"))
	_, _ = b.Receive("alice")
	_, _ = b.Receive("bob")

	b.Logoff("alice")

	msg, ok := b.Receive("bob")
	require.True(t, ok)
	require.Equal(t, "* alice has left the room\n", msg)
}

func TestValidate(t *testing.T) {
	_, err := Validate([]byte(""))
	require.Error(t, err)

	_, err = Validate([]byte("not valid!"))
	require.Error(t, err)

	name, err := Validate([]byte("  bob123  "))
	require.NoError(t, err)
	require.Equal(t, "bob123", name)
}
