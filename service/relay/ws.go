package relay

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"chatwire/logger"
	"chatwire/service/storage"
	"chatwire/tools/ids"
	"chatwire/tools/safe"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 25 * time.Second
	maxFrameSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the request and runs the connection's read loop.
// The loop only reads and submits events; all state changes happen on the
// server's event loop, and all writes go through the writer pump.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade error: %v", err)
		return
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Debugf("[ws] close: %v", cerr)
		}
	}()

	client := NewClient(ids.GenerateString(), ws, s.sendQueueSize)
	s.OnConnect(client)
	safe.Go(func() { s.writePump(client) })

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		s.renewPresence(client)
		return nil
	})

	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", client.ConnID, rerr)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		s.submitFrame(client, frame)
	}

	s.Submit(Event{Kind: EventDisconnect, Conn: client})
}

// submitFrame maps a wire frame onto the router's event union. Malformed
// payloads are dropped with a diagnostic; they never kill the connection.
func (s *Server) submitFrame(c *Client, f *Frame) {
	switch f.Event {
	case EvSetup:
		var u UserRef
		if err := json.Unmarshal(f.Payload, &u); err != nil || u.ID == "" {
			logger.Infof("[ws] setup payload invalid conn=%s err=%v", c.ConnID, err)
			return
		}
		s.Submit(Event{Kind: EventSetup, Conn: c, UserID: u.ID})

	case EvJoinChat, EvTyping, EvStopTyping:
		var chatID string
		if err := json.Unmarshal(f.Payload, &chatID); err != nil || chatID == "" {
			logger.Infof("[ws] %s payload invalid conn=%s err=%v", f.Event, c.ConnID, err)
			return
		}
		kind := EventJoinChat
		switch f.Event {
		case EvTyping:
			kind = EventTyping
		case EvStopTyping:
			kind = EventStopTyping
		}
		s.Submit(Event{Kind: kind, Conn: c, ChatID: chatID})

	case EvNewMessage:
		env, err := parseEnvelope(f.Payload)
		if err != nil {
			logger.Infof("[ws] message envelope invalid conn=%s err=%v", c.ConnID, err)
			return
		}
		s.Submit(Event{Kind: EventNewMessage, Conn: c, Envelope: env})

	default:
		logger.Infof("[ws] unknown event %q conn=%s", f.Event, c.ConnID)
	}
}

// writePump is the single writer for one connection. It exits when the
// send queue closes (disconnect) or a write fails; the read loop then
// notices and triggers the normal disconnect path.
func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.WS.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[ws] write err conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// renewPresence refreshes the Redis presence mirror on heartbeat so the
// key's TTL outlives a healthy connection.
func (s *Server) renewPresence(c *Client) {
	userID := c.User()
	if userID == "" || !storage.Enabled() {
		return
	}
	gw := s.gatewayID
	safe.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := storage.PresenceOnline(ctx, userID, gw, presenceTTL); err != nil {
			logger.Debugf("[ws] presence renew user=%s: %v", userID, err)
		}
	})
}
