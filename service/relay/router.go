package relay

import (
	"context"
	"encoding/json"
	"time"

	"chatwire/logger"
	"chatwire/service/storage"
	"chatwire/tools/safe"
)

// Router turns inbound events into registry/room mutations and outbound
// broadcasts. All handlers run on the server's single event loop, so each
// event is processed to completion before the next one starts.
type Router struct {
	s *Server
}

func newRouter(s *Server) *Router { return &Router{s: s} }

func (r *Router) dispatch(ev Event) {
	switch ev.Kind {
	case EventSetup:
		r.handleSetup(ev.Conn, ev.UserID)
	case EventJoinChat:
		r.handleJoinChat(ev.Conn, ev.ChatID)
	case EventTyping:
		r.handleTyping(ev.Conn, ev.ChatID, EvTyping)
	case EventStopTyping:
		r.handleTyping(ev.Conn, ev.ChatID, EvStopTyping)
	case EventNewMessage:
		r.handleNewMessage(ev.Conn, ev.Envelope)
	case EventRemoteMessage:
		r.deliverEnvelope(ev.Envelope)
	case EventDisconnect:
		r.handleDisconnect(ev.Conn)
	default:
		logger.Warnf("[relay] unknown event kind %d", ev.Kind)
	}
}

// handleSetup binds the connection to a user identity, joins the user's
// private room and republishes presence iff the user just came online.
func (r *Router) handleSetup(c *Client, userID string) {
	if c == nil || userID == "" {
		logger.Warn("[relay] setup without user id, dropping")
		return
	}
	if bound := c.User(); bound != "" && bound != userID {
		logger.Warnf("[relay] setup rebind attempt conn=%s old=%s new=%s, dropping",
			c.ConnID, bound, userID)
		return
	}

	newlyOnline := r.s.reg.Register(userID, c.ConnID)
	c.setUser(userID)
	r.s.rooms.Join(c, userID)

	if ack, err := EncodeFrame(EvConnected, nil); err == nil {
		c.enqueue(ack)
	}

	if newlyOnline {
		r.s.presence.Publish()
		r.mirrorOnline(userID)
	}
}

func (r *Router) handleJoinChat(c *Client, chatID string) {
	if c == nil || chatID == "" {
		return
	}
	r.s.rooms.Join(c, chatID)
	logger.Debugf("[relay] conn=%s joined room=%s", c.ConnID, chatID)
}

// handleTyping relays typing/stop-typing to the chat room, excluding the
// connection that emitted it.
func (r *Router) handleTyping(c *Client, chatID, event string) {
	if c == nil || chatID == "" {
		return
	}
	r.s.rooms.Broadcast(chatID, event, chatID, c.ConnID)
}

// handleNewMessage fans a persisted message out to every participant's
// private room except the sender's. An envelope without a participants
// list is dropped: the relay never guesses recipients.
func (r *Router) handleNewMessage(c *Client, env *MessageEnvelope) {
	if env == nil || len(env.Chat.Users) == 0 {
		logger.Warn("[relay] new message without chat users, dropping")
		return
	}
	r.deliverEnvelope(env)

	if r.s.bridge != nil {
		r.publishToBridge(env)
	}
}

// deliverEnvelope does the local per-user fan-out. Exclusion is by user
// identity, not connection id: the sender's own devices get nothing.
func (r *Router) deliverEnvelope(env *MessageEnvelope) {
	if env == nil || len(env.Chat.Users) == 0 {
		return
	}
	frame, err := EncodeFrame(EvMessageReceived, env.Raw)
	if err != nil {
		logger.Errorf("[relay] encode message envelope: %v", err)
		return
	}
	for _, u := range env.Chat.Users {
		if u.ID == "" || u.ID == env.Sender.ID {
			continue
		}
		r.s.rooms.BroadcastRaw(u.ID, frame, "")
	}
}

// handleDisconnect reconciles all per-connection state. Idempotent: a
// second disconnect for the same connection is a no-op end to end.
func (r *Router) handleDisconnect(c *Client) {
	if c == nil {
		return
	}
	r.s.rooms.LeaveAll(c.ConnID)
	wasLast := r.s.reg.Unregister(c.ConnID)
	r.s.removeConn(c.ConnID)
	userID := c.User()
	c.close()

	if wasLast {
		r.s.presence.Publish()
		r.mirrorOffline(userID)
	}
}

// bridgeFrame is the cross-instance wire shape. Gateway lets an instance
// skip its own publications when they come back around.
type bridgeFrame struct {
	Gateway  string          `json:"gateway"`
	Envelope json.RawMessage `json:"envelope"`
}

func (r *Router) publishToBridge(env *MessageEnvelope) {
	payload, err := json.Marshal(bridgeFrame{Gateway: r.s.gatewayID, Envelope: env.Raw})
	if err != nil {
		logger.Errorf("[relay] encode bridge frame: %v", err)
		return
	}
	bridge := r.s.bridge
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := bridge.Publish(ctx, payload); err != nil {
			logger.Errorf("[relay] bridge publish: %v", err)
		}
	})
}

// Presence mirror writes are best-effort and stay off the hot path.

func (r *Router) mirrorOnline(userID string) {
	gw := r.s.gatewayID
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := storage.PresenceOnline(ctx, userID, gw, presenceTTL); err != nil {
			logger.Errorf("[relay] presence mirror online user=%s: %v", userID, err)
		}
	})
}

func (r *Router) mirrorOffline(userID string) {
	if userID == "" {
		return
	}
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := storage.PresenceOffline(ctx, userID); err != nil {
			logger.Errorf("[relay] presence mirror offline user=%s: %v", userID, err)
		}
	})
}
