package relay

import (
	"chatwire/logger"
)

// Publisher broadcasts the global online-user set to every open connection.
// It is invoked only on user-level transitions (first connection up, last
// connection down), never per extra device, so multi-device users do not
// cause broadcast storms. Presence is keyed on user id, not connection id.
type Publisher struct {
	reg     *Registry
	clients func() []*Client // every open connection, identified or not
	fanout  *Fanout
}

func NewPublisher(reg *Registry, clients func() []*Client, fanout *Fanout) *Publisher {
	return &Publisher{reg: reg, clients: clients, fanout: fanout}
}

// Publish snapshots the online set and emits it to all connections.
func (p *Publisher) Publish() {
	ids := p.reg.OnlineUserIDs()
	frame, err := EncodeFrame(EvOnlineUsers, ids)
	if err != nil {
		logger.Errorf("[presence] encode: %v", err)
		return
	}

	targets := p.clients()
	if len(targets) == 0 {
		return
	}
	if p.fanout != nil {
		p.fanout.Dispatch(targets, frame)
		return
	}
	for _, c := range targets {
		c.enqueue(frame)
	}
}
