package relay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryOnlineTracksNetRegistrations(t *testing.T) {
	r := NewRegistry()

	require.False(t, r.IsOnline("u1"))

	require.True(t, r.Register("u1", "c1"))
	require.True(t, r.IsOnline("u1"))

	// second connection for the same user is not a new online transition
	require.False(t, r.Register("u1", "c2"))
	require.True(t, r.IsOnline("u1"))

	// registering the same connection twice is idempotent
	require.False(t, r.Register("u1", "c2"))

	require.False(t, r.Unregister("c1"))
	require.True(t, r.IsOnline("u1"))

	require.True(t, r.Unregister("c2"))
	require.False(t, r.IsOnline("u1"))
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.Unregister("nope"))

	r.Register("u1", "c1")
	require.False(t, r.Unregister("nope"))
	require.True(t, r.IsOnline("u1"))
}

func TestRegistryDoubleUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1")

	require.True(t, r.Unregister("c1"))
	require.False(t, r.Unregister("c1"))
	require.False(t, r.IsOnline("u1"))
}

func TestRegistryOnlineUserIDs(t *testing.T) {
	r := NewRegistry()
	r.Register("u1", "c1")
	r.Register("u2", "c2")
	r.Register("u2", "c3")

	require.ElementsMatch(t, []string{"u1", "u2"}, r.OnlineUserIDs())

	r.Unregister("c2")
	require.ElementsMatch(t, []string{"u1", "u2"}, r.OnlineUserIDs())

	r.Unregister("c3")
	require.ElementsMatch(t, []string{"u1"}, r.OnlineUserIDs())
}

func TestRegistryEmptyArgs(t *testing.T) {
	r := NewRegistry()
	require.False(t, r.Register("", "c1"))
	require.False(t, r.Register("u1", ""))
	require.Empty(t, r.OnlineUserIDs())
}
