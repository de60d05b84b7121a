package chat

import (
	"context"
	"net/http"
	"time"

	"CSProject/logger"
	"CSProject/middleware/security"
	"CSProject/tools/errs"
	"CSProject/tools/ids"
	"CSProject/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const authDeadline = 10 * time.Second

// HandleWS upgrades the connection and serves the frame loop. The
// first frame must be auth; everything after is ping / subscribe /
// unsubscribe. Confirmed deltas arrive as event frames through the
// fanout, never from this read loop.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade websocket error: %v", err)
		return
	}

	client, err := s.authenticate(ws)
	if err != nil {
		_ = ws.WriteMessage(websocket.TextMessage, MarshalFrame(BuildErrorFrame(err)))
		_ = ws.Close()
		return
	}

	s.conns.Add(client)
	safe.SafeGo(client.WritePump)
	client.Enqueue(MarshalFrame(BuildConnectionAck(client.ID)))

	ctx := context.Background()
	if s.presence != nil {
		if err := s.presence.Online(ctx, client.UserID, s.cfg.Server.GatewayID); err != nil {
			logger.Warnf("[HandleWS] presence online failed user=%s err=%v", client.UserID, err)
		}
	}
	logger.Infof("[HandleWS] connected user=%s conn_id=%s", client.UserID, client.ID)

	s.readLoop(ctx, client)

	if s.presence != nil {
		if err := s.presence.Offline(ctx, client.UserID); err != nil {
			logger.Warnf("[HandleWS] presence offline failed user=%s err=%v", client.UserID, err)
		}
	}
	s.conns.Remove(client)
	client.Close()
	logger.Infof("[HandleWS] closed user=%s conn_id=%s", client.UserID, client.ID)
}

// authenticate expects the auth frame as the first message.
func (s *Server) authenticate(ws *websocket.Conn) (*Client, error) {
	_ = ws.SetReadDeadline(time.Now().Add(authDeadline))
	defer func() { _ = ws.SetReadDeadline(time.Time{}) }()

	_, data, err := ws.ReadMessage()
	if err != nil {
		return nil, errs.ErrTokenExpired.WrapMsg("no auth frame")
	}
	frame, err := ParseFrameJSON(data)
	if err != nil || frame.Type != FrameAuth {
		return nil, errs.ErrTokenExpired.WrapMsg("first frame must be auth")
	}
	payload, err := ExtractAuthPayload(frame)
	if err != nil {
		return nil, errs.ErrTokenExpired.WrapMsg("bad auth payload")
	}
	username, err := security.ParseToken([]byte(s.cfg.Auth.JwtSecret), payload.Token)
	if err != nil {
		return nil, err
	}
	return NewClient(ids.GenerateString(), username, ws), nil
}

func (s *Server) readLoop(ctx context.Context, client *Client) {
	for {
		mt, data, err := client.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn_id=%s", client.ID)
			} else {
				logger.Infof("[WS] read err conn_id=%s err=%v", client.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrameJSON(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[WS] ParseFrameJSON err conn_id=%s err=%v sample=%q", client.ID, err, sample)
			continue
		}

		switch frame.Type {
		case FramePing:
			if s.presence != nil {
				_ = s.presence.Refresh(ctx, client.UserID)
			}
			client.Enqueue(MarshalFrame(BuildPong()))

		case FrameSubscribe:
			s.handleSubscribe(client, frame)

		case FrameUnsubscribe:
			payload, err := ExtractSubscribePayload(frame)
			if err != nil {
				client.Enqueue(MarshalFrame(BuildErrorFrame(err)))
				continue
			}
			s.conns.Unsubscribe(client.ID, payload.ConversationNumber)

		default:
			logger.Infof("[WS] no handler for frame type=%s conn_id=%s", frame.Type, client.ID)
		}
	}
}

// handleSubscribe gates the subscription on current membership.
func (s *Server) handleSubscribe(client *Client, frame *Frame) {
	payload, err := ExtractSubscribePayload(frame)
	if err != nil {
		client.Enqueue(MarshalFrame(BuildErrorFrame(err)))
		return
	}
	conv, err := s.reg.Get(payload.ConversationNumber)
	if err != nil {
		client.Enqueue(MarshalFrame(BuildErrorFrame(err)))
		return
	}
	if !conv.IsMember(client.UserID) {
		client.Enqueue(MarshalFrame(BuildErrorFrame(
			errs.ErrNotMember.WrapMsg("subscribe", "user", client.UserID))))
		return
	}
	s.conns.Subscribe(client.ID, payload.ConversationNumber)
	client.Enqueue(MarshalFrame(BuildConnectionAck(client.ID)))
}
