package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	// no fanout workers: delivery happens inline, keeping tests deterministic
	return NewServer(Options{GatewayID: "gw-test"})
}

func dial(s *Server, connID string) *Client {
	c := NewClient(connID, nil, 16)
	s.OnConnect(c)
	return c
}

func setup(s *Server, c *Client, userID string) {
	s.router.dispatch(Event{Kind: EventSetup, Conn: c, UserID: userID})
}

func joinChat(s *Server, c *Client, chatID string) {
	s.router.dispatch(Event{Kind: EventJoinChat, Conn: c, ChatID: chatID})
}

func disconnect(s *Server, c *Client) {
	s.router.dispatch(Event{Kind: EventDisconnect, Conn: c})
}

func envelope(t *testing.T, senderID, chatID string, userIDs ...string) *MessageEnvelope {
	t.Helper()
	users := make([]map[string]string, 0, len(userIDs))
	for _, id := range userIDs {
		users = append(users, map[string]string{"_id": id})
	}
	raw, err := json.Marshal(map[string]any{
		"_id":     "m1",
		"content": "hello",
		"sender":  map[string]string{"_id": senderID},
		"chat":    map[string]any{"_id": chatID, "users": users},
	})
	require.NoError(t, err)
	env, err := parseEnvelope(raw)
	require.NoError(t, err)
	return env
}

func sendMessage(s *Server, c *Client, env *MessageEnvelope) {
	s.router.dispatch(Event{Kind: EventNewMessage, Conn: c, Envelope: env})
}

func countEvent(fs []Frame, name string) int {
	n := 0
	for _, f := range fs {
		if f.Event == name {
			n++
		}
	}
	return n
}

func TestSetupAcksAndPublishesPresence(t *testing.T) {
	s := newTestServer()
	c1 := dial(s, "c1")

	setup(s, c1, "u1")

	frames := recvFrames(t, c1)
	require.Equal(t, 1, countEvent(frames, EvConnected))
	require.Equal(t, 1, countEvent(frames, EvOnlineUsers))
	require.True(t, s.reg.IsOnline("u1"))
	require.Equal(t, []string{"c1"}, s.rooms.Members("u1"))
}

func TestMultiDevicePublishesPresenceOnce(t *testing.T) {
	s := newTestServer()
	c1 := dial(s, "c1")
	c2 := dial(s, "c2")

	setup(s, c1, "u1")
	recvFrames(t, c1)
	recvFrames(t, c2)

	// same user on a second device: no presence republish anywhere
	setup(s, c2, "u1")
	require.Zero(t, countEvent(recvFrames(t, c1), EvOnlineUsers))
	require.Equal(t, 1, countEvent(recvFrames(t, c2), EvConnected))

	// first device drops: user still online, no publish
	disconnect(s, c1)
	require.Zero(t, countEvent(recvFrames(t, c2), EvOnlineUsers))
	require.True(t, s.reg.IsOnline("u1"))

	// last device drops: user offline, observers get the new set
	c3 := dial(s, "c3")
	setup(s, c3, "u2")
	recvFrames(t, c3)

	disconnect(s, c2)
	frames := recvFrames(t, c3)
	require.Equal(t, 1, countEvent(frames, EvOnlineUsers))

	var online []string
	for _, f := range frames {
		if f.Event == EvOnlineUsers {
			require.NoError(t, json.Unmarshal(f.Payload, &online))
		}
	}
	require.NotContains(t, online, "u1")
	require.Contains(t, online, "u2")
}

func TestPresenceReachesUnidentifiedConnections(t *testing.T) {
	s := newTestServer()
	watcher := dial(s, "c-watch") // never identifies
	c1 := dial(s, "c1")

	setup(s, c1, "u1")

	require.Equal(t, 1, countEvent(recvFrames(t, watcher), EvOnlineUsers))
}

func TestTypingExcludesEmitter(t *testing.T) {
	s := newTestServer()
	c1, c2, c3 := dial(s, "c1"), dial(s, "c2"), dial(s, "c3")
	setup(s, c1, "u1")
	setup(s, c2, "u2")
	setup(s, c3, "u3")
	joinChat(s, c1, "chat1")
	joinChat(s, c2, "chat1")
	joinChat(s, c3, "chat1")
	for _, c := range []*Client{c1, c2, c3} {
		recvFrames(t, c)
	}

	s.router.dispatch(Event{Kind: EventTyping, Conn: c1, ChatID: "chat1"})
	require.Zero(t, countEvent(recvFrames(t, c1), EvTyping))
	require.Equal(t, 1, countEvent(recvFrames(t, c2), EvTyping))
	require.Equal(t, 1, countEvent(recvFrames(t, c3), EvTyping))

	s.router.dispatch(Event{Kind: EventStopTyping, Conn: c2, ChatID: "chat1"})
	require.Equal(t, 1, countEvent(recvFrames(t, c1), EvStopTyping))
	require.Zero(t, countEvent(recvFrames(t, c2), EvStopTyping))
}

func TestNewMessageFanOutExcludesSenderByUserID(t *testing.T) {
	s := newTestServer()
	sender := dial(s, "c-s")
	senderPhone := dial(s, "c-s2") // sender's second device
	a := dial(s, "c-a")
	b := dial(s, "c-b")
	setup(s, sender, "uS")
	setup(s, senderPhone, "uS")
	setup(s, a, "uA")
	setup(s, b, "uB")
	for _, c := range []*Client{sender, senderPhone, a, b} {
		recvFrames(t, c)
	}

	sendMessage(s, sender, envelope(t, "uS", "chat1", "uS", "uA", "uB"))

	require.Zero(t, countEvent(recvFrames(t, sender), EvMessageReceived))
	require.Zero(t, countEvent(recvFrames(t, senderPhone), EvMessageReceived))
	require.Equal(t, 1, countEvent(recvFrames(t, a), EvMessageReceived))
	require.Equal(t, 1, countEvent(recvFrames(t, b), EvMessageReceived))
}

func TestNewMessageOneToOne(t *testing.T) {
	s := newTestServer()
	c1, c2 := dial(s, "c1"), dial(s, "c2")
	setup(s, c1, "u1")
	setup(s, c2, "u2")
	recvFrames(t, c1)
	recvFrames(t, c2)

	sendMessage(s, c1, envelope(t, "u1", "chat1", "u1", "u2"))

	require.Zero(t, countEvent(recvFrames(t, c1), EvMessageReceived))
	frames := recvFrames(t, c2)
	require.Equal(t, 1, countEvent(frames, EvMessageReceived))

	// relayed payload is the original envelope, untouched
	for _, f := range frames {
		if f.Event == EvMessageReceived {
			var got map[string]any
			require.NoError(t, json.Unmarshal(f.Payload, &got))
			require.Equal(t, "hello", got["content"])
		}
	}
}

func TestNewMessageWithoutUsersIsDropped(t *testing.T) {
	s := newTestServer()
	c1, c2 := dial(s, "c1"), dial(s, "c2")
	setup(s, c1, "u1")
	setup(s, c2, "u2")
	recvFrames(t, c1)
	recvFrames(t, c2)

	raw := json.RawMessage(`{"sender":{"_id":"u1"},"chat":{"_id":"chat1"},"content":"x"}`)
	env, err := parseEnvelope(raw)
	require.NoError(t, err)

	sendMessage(s, c1, env)

	require.Empty(t, recvFrames(t, c1))
	require.Empty(t, recvFrames(t, c2))
}

func TestBroadcastSurvivesDisconnectThroughPool(t *testing.T) {
	s := NewServer(Options{GatewayID: "gw-test", FanoutWorkers: 2, FanoutQueue: 256})
	c1, c2 := dial(s, "c1"), dial(s, "c2")
	setup(s, c1, "u1")
	setup(s, c2, "u2")
	joinChat(s, c1, "chat1")
	joinChat(s, c2, "chat1")

	// queue plenty of work referencing c2, then take c2 down before the
	// workers can possibly have drained it
	for i := 0; i < 64; i++ {
		s.router.dispatch(Event{Kind: EventTyping, Conn: c1, ChatID: "chat1"})
	}
	disconnect(s, c2)
	for i := 0; i < 64; i++ {
		s.router.dispatch(Event{Kind: EventTyping, Conn: c1, ChatID: "chat1"})
	}

	require.Eventually(t, func() bool {
		return !s.reg.IsOnline("u2")
	}, time.Second, 5*time.Millisecond)
	require.True(t, s.reg.IsOnline("u1"))
}

func TestDisconnectIsIdempotent(t *testing.T) {
	s := newTestServer()
	c1 := dial(s, "c1")
	observer := dial(s, "c2")
	setup(s, c1, "u1")
	setup(s, observer, "u2")
	recvFrames(t, c1)
	recvFrames(t, observer)

	disconnect(s, c1)
	require.Equal(t, 1, countEvent(recvFrames(t, observer), EvOnlineUsers))

	// second fire: no error, no extra publish
	disconnect(s, c1)
	require.Zero(t, countEvent(recvFrames(t, observer), EvOnlineUsers))
}

func TestReconnectRejoinHasNoStaleMembership(t *testing.T) {
	s := newTestServer()
	c1 := dial(s, "c1")
	setup(s, c1, "u1")
	joinChat(s, c1, "chat1")
	firstJoin := s.rooms.Members("chat1")

	disconnect(s, c1)
	require.Empty(t, s.rooms.Members("chat1"))
	require.Empty(t, s.rooms.Members("u1"))

	c2 := dial(s, "c2")
	setup(s, c2, "u1")
	joinChat(s, c2, "chat1")

	require.Len(t, s.rooms.Members("chat1"), len(firstJoin))
	require.Equal(t, []string{"c2"}, s.rooms.Members("chat1"))
}

func TestSetupRebindToOtherUserIsDropped(t *testing.T) {
	s := newTestServer()
	c1 := dial(s, "c1")
	setup(s, c1, "u1")
	recvFrames(t, c1)

	setup(s, c1, "u2")
	require.Zero(t, countEvent(recvFrames(t, c1), EvConnected))
	require.False(t, s.reg.IsOnline("u2"))
	require.True(t, s.reg.IsOnline("u1"))
}

// --- bridge ---

type fakeBridge struct {
	published chan []byte
}

func (f *fakeBridge) Publish(_ context.Context, payload []byte) error {
	f.published <- payload
	return nil
}

func (f *fakeBridge) Subscribe(ctx context.Context, fn func([]byte)) {
	<-ctx.Done()
}

func TestNewMessagePublishesToBridge(t *testing.T) {
	fb := &fakeBridge{published: make(chan []byte, 1)}
	s := NewServer(Options{GatewayID: "gw-a", Bridge: fb})
	c1, c2 := dial(s, "c1"), dial(s, "c2")
	setup(s, c1, "u1")
	setup(s, c2, "u2")

	sendMessage(s, c1, envelope(t, "u1", "chat1", "u1", "u2"))

	select {
	case payload := <-fb.published:
		var bf bridgeFrame
		require.NoError(t, json.Unmarshal(payload, &bf))
		require.Equal(t, "gw-a", bf.Gateway)
		require.NotEmpty(t, bf.Envelope)
	case <-time.After(time.Second):
		t.Fatal("bridge publish never happened")
	}
}

func TestBridgePayloadFromSiblingIsQueued(t *testing.T) {
	s := NewServer(Options{GatewayID: "gw-a"})

	env := envelope(t, "u1", "chat1", "u1", "u2")
	payload, err := json.Marshal(bridgeFrame{Gateway: "gw-b", Envelope: env.Raw})
	require.NoError(t, err)

	s.onBridgePayload(payload)

	select {
	case ev := <-s.events:
		require.Equal(t, EventRemoteMessage, ev.Kind)
		require.Equal(t, "u1", ev.Envelope.Sender.ID)
	default:
		t.Fatal("expected a queued remote event")
	}
}

func TestBridgePayloadFromSelfIsIgnored(t *testing.T) {
	s := NewServer(Options{GatewayID: "gw-a"})

	env := envelope(t, "u1", "chat1", "u1", "u2")
	payload, err := json.Marshal(bridgeFrame{Gateway: "gw-a", Envelope: env.Raw})
	require.NoError(t, err)

	s.onBridgePayload(payload)

	select {
	case <-s.events:
		t.Fatal("own publication must be skipped")
	default:
	}
}

func TestRemoteMessageDeliversLocallyOnly(t *testing.T) {
	fb := &fakeBridge{published: make(chan []byte, 1)}
	s := NewServer(Options{GatewayID: "gw-a", Bridge: fb})
	c2 := dial(s, "c2")
	setup(s, c2, "u2")
	recvFrames(t, c2)

	s.router.dispatch(Event{Kind: EventRemoteMessage, Envelope: envelope(t, "u1", "chat1", "u1", "u2")})

	require.Equal(t, 1, countEvent(recvFrames(t, c2), EvMessageReceived))

	select {
	case <-fb.published:
		t.Fatal("remote events must never be re-published")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventLoopSerialization(t *testing.T) {
	s := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	conns := make([]*Client, 0, 8)
	for i := 0; i < 8; i++ {
		c := dial(s, fmt.Sprintf("c%d", i))
		conns = append(conns, c)
		s.Submit(Event{Kind: EventSetup, Conn: c, UserID: fmt.Sprintf("u%d", i)})
	}

	require.Eventually(t, func() bool {
		return len(s.reg.OnlineUserIDs()) == 8
	}, time.Second, 5*time.Millisecond)

	for _, c := range conns {
		s.Submit(Event{Kind: EventDisconnect, Conn: c})
	}
	require.Eventually(t, func() bool {
		return len(s.reg.OnlineUserIDs()) == 0
	}, time.Second, 5*time.Millisecond)
}
