package relay

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnqueueAfterCloseIsNoop(t *testing.T) {
	c := NewClient("c1", nil, 4)

	require.True(t, c.enqueue([]byte("a")))
	c.close()

	require.False(t, c.enqueue([]byte("b")))
	require.False(t, c.enqueue([]byte("c")))

	// the frame queued before close is still drainable
	require.Equal(t, []byte("a"), <-c.Send)
	_, open := <-c.Send
	require.False(t, open)
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewClient("c1", nil, 4)
	c.close()
	c.close()
	require.False(t, c.enqueue([]byte("x")))
}

func TestUserBindingIsConcurrencySafe(t *testing.T) {
	c := NewClient("c1", nil, 4)
	require.Empty(t, c.User())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.setUser("u1")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.User()
		}
	}()
	wg.Wait()

	require.Equal(t, "u1", c.User())
}
