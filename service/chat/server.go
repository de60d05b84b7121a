package chat

import (
	"context"
	"encoding/json"

	"CSProject/config"
	"CSProject/logger"
	"CSProject/module/conversation/core"
	"CSProject/module/conversation/model"
	"CSProject/service/natsx"
	"CSProject/service/storage"
	"CSProject/tools/safe"
)

// event bus route: every confirmed mutation is published here and
// consumed by every gateway for websocket fanout.
const (
	BizConvEvents     = "conv.events"
	SubjectConvEvents = "conv.events"
)

// Server is the gateway state: the authoritative conversation
// register plus everything needed to push confirmed deltas out.
// Constructed once in main and passed around explicitly.
type Server struct {
	cfg      *config.AppConfig
	reg      *core.Register
	conns    *Registry
	fanout   *Fanout
	nats     *natsx.NatsManager
	presence *storage.Presence
}

func NewServer(cfg *config.AppConfig, reg *core.Register, nm *natsx.NatsManager, presence *storage.Presence) *Server {
	safe.MustNotNil(cfg, "cfg")
	safe.MustNotNil(reg, "reg")
	return &Server{
		cfg:      cfg,
		reg:      reg,
		conns:    NewRegistry(),
		fanout:   NewFanout(4, 4096),
		nats:     nm,
		presence: presence,
	}
}

func (s *Server) Register() *core.Register { return s.reg }

func (s *Server) Conns() *Registry { return s.conns }

// StartEventLoop registers the bus route and attaches the consumer
// that fans events out to local subscribers. Without a bus (dev,
// tests) events flow directly through Deliver.
func (s *Server) StartEventLoop() error {
	if s.nats == nil {
		logger.Warnf("[EventLoop] no nats manager, local delivery only")
		return nil
	}
	if err := s.nats.RegisterRoute(natsx.NatsxRoute{
		Biz:     BizConvEvents,
		Subject: SubjectConvEvents,
	}); err != nil {
		return err
	}
	return s.nats.Subscribe(BizConvEvents, func(ctx context.Context, msg natsx.NatsxMessage) error {
		var e model.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			logger.Errorf("[EventLoop] bad event payload: %v", err)
			return nil
		}
		s.Deliver(&e)
		return nil
	})
}

// PublishEvent hands one confirmed mutation to the bus; with no bus it
// short-circuits to local delivery.
func (s *Server) PublishEvent(ctx context.Context, e *model.Event) {
	if e == nil {
		return
	}
	if s.nats == nil {
		s.Deliver(e)
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		logger.Errorf("[PublishEvent] marshal: %v", err)
		return
	}
	if err := s.nats.Publish(ctx, BizConvEvents, data, nil); err != nil {
		logger.Errorf("[PublishEvent] publish: %v", err)
		// bus down: still deliver to local subscribers
		s.Deliver(e)
	}
}

// Deliver pushes one event frame to every local connection subscribed
// to the conversation.
func (s *Server) Deliver(e *model.Event) {
	conns := s.conns.ListByConv(e.ConversationNumber)
	if len(conns) == 0 {
		return
	}
	payload := MarshalFrame(BuildEventFrame(e))
	s.fanout.Broadcast(conns, payload)
}
