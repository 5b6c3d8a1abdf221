package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFanoutDeliversToAllTargets(t *testing.T) {
	f := NewFanout(2, 16)
	c1, c2 := newTestConn("c1"), newTestConn("c2")

	f.Dispatch([]*Client{c1, c2}, []byte(`{"event":"typing"}`))

	require.Eventually(t, func() bool {
		return len(c1.Send) == 1 && len(c2.Send) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestFanoutSkipsSlowClient(t *testing.T) {
	f := NewFanout(1, 16)
	slow := NewClient("slow", nil, 1)
	slow.Send <- []byte("full") // queue saturated
	ok := newTestConn("ok")

	f.Dispatch([]*Client{slow, ok}, []byte(`{"event":"typing"}`))

	require.Eventually(t, func() bool {
		return len(ok.Send) == 1
	}, time.Second, 5*time.Millisecond)
	require.Len(t, slow.Send, 1) // untouched, frame dropped
}

func TestFanoutIgnoresEmptyWork(t *testing.T) {
	f := NewFanout(1, 1)
	f.Dispatch(nil, []byte("x"))
	f.Dispatch([]*Client{newTestConn("c1")}, nil)
}

func TestFanoutSkipsClosedClient(t *testing.T) {
	f := NewFanout(2, 64)
	gone := newTestConn("gone")
	gone.close() // disconnected while jobs still reference it
	ok := newTestConn("ok")

	for i := 0; i < 8; i++ {
		f.Dispatch([]*Client{gone, ok}, []byte(`{"event":"typing"}`))
	}

	require.Eventually(t, func() bool {
		return len(ok.Send) == 8
	}, time.Second, 5*time.Millisecond)
}

func TestFanoutCloseDrainsQueuedWork(t *testing.T) {
	f := NewFanout(1, 16)
	c := newTestConn("c1")

	f.Dispatch([]*Client{c}, []byte(`{"event":"typing"}`))
	f.Close()

	require.Eventually(t, func() bool {
		return len(c.Send) >= 1
	}, time.Second, 5*time.Millisecond)

	// after shutdown both are harmless no-ops
	f.Dispatch([]*Client{c}, []byte(`{"event":"typing"}`))
	f.Close()
}
