package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"chatwire/logger"
	"chatwire/tools/safe"
)

const presenceTTL = 5 * time.Minute

// Bridge is the optional cross-instance pub/sub collaborator. Without one
// the relay is correct for all connections attached to this process.
type Bridge interface {
	Publish(ctx context.Context, payload []byte) error
	Subscribe(ctx context.Context, fn func([]byte))
}

type Options struct {
	GatewayID     string
	Bridge        Bridge // nil disables cross-instance fan-out
	FanoutWorkers int    // <=0 delivers inline from the loop
	FanoutQueue   int
	SendQueueSize int // per-connection outbound queue
	EventQueue    int
}

func (o *Options) norm() {
	if o.GatewayID == "" {
		o.GatewayID = "gw-1"
	}
	if o.FanoutQueue <= 0 {
		o.FanoutQueue = 1024
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.EventQueue <= 0 {
		o.EventQueue = 4096
	}
}

// Server owns the relay state: the connection registry, the room index,
// the presence publisher and the single goroutine that mutates them.
type Server struct {
	gatewayID string
	reg       *Registry
	rooms     *Rooms
	presence  *Publisher
	fanout    *Fanout
	router    *Router
	bridge    Bridge

	events        chan Event
	done          chan struct{}
	sendQueueSize int

	mu    sync.RWMutex
	conns map[string]*Client // every open connection, identified or not
}

func NewServer(opt Options) *Server {
	opt.norm()
	s := &Server{
		gatewayID:     opt.GatewayID,
		reg:           NewRegistry(),
		bridge:        opt.Bridge,
		events:        make(chan Event, opt.EventQueue),
		done:          make(chan struct{}),
		sendQueueSize: opt.SendQueueSize,
		conns:         make(map[string]*Client),
	}
	if opt.FanoutWorkers > 0 {
		s.fanout = NewFanout(opt.FanoutWorkers, opt.FanoutQueue)
	}
	s.rooms = NewRooms(s.fanout)
	s.presence = NewPublisher(s.reg, s.allClients, s.fanout)
	s.router = newRouter(s)
	return s
}

func (s *Server) GatewayID() string   { return s.gatewayID }
func (s *Server) Registry() *Registry { return s.reg }
func (s *Server) Rooms() *Rooms       { return s.rooms }

// Run drives the event loop until ctx is cancelled. Registry and room
// mutations happen only here; handlers run to completion one at a time.
func (s *Server) Run(ctx context.Context) {
	if s.bridge != nil {
		safe.Go(func() { s.bridge.Subscribe(ctx, s.onBridgePayload) })
	}

	defer close(s.done)
	if s.fanout != nil {
		defer s.fanout.Close()
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info("[relay] event loop stopped")
			return
		case ev := <-s.events:
			s.router.dispatch(ev)
		}
	}
}

// Submit queues an inbound event, preserving per-connection order.
func (s *Server) Submit(ev Event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// OnConnect registers a fresh, still-unidentified connection.
func (s *Server) OnConnect(c *Client) {
	s.mu.Lock()
	s.conns[c.ConnID] = c
	s.mu.Unlock()
	logger.Debugf("[relay] conn=%s opened", c.ConnID)
}

func (s *Server) removeConn(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[connID]; !ok {
		return false
	}
	delete(s.conns, connID)
	return true
}

func (s *Server) allClients() []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Client, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}

// onBridgePayload feeds envelopes published by sibling instances into the
// loop as remote events, which are delivered locally and never re-published.
func (s *Server) onBridgePayload(payload []byte) {
	var bf bridgeFrame
	if err := json.Unmarshal(payload, &bf); err != nil {
		logger.Errorf("[relay] bad bridge frame: %v", err)
		return
	}
	if bf.Gateway == s.gatewayID {
		return
	}
	env, err := parseEnvelope(bf.Envelope)
	if err != nil {
		logger.Errorf("[relay] bad bridge envelope: %v", err)
		return
	}
	s.Submit(Event{Kind: EventRemoteMessage, Envelope: env})
}
