package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"CSProject/module/conversation/model"
	"CSProject/tools/decode"
	"CSProject/tools/errs"
)

// wire frame types, client <-> gateway over the websocket
const (
	FrameAuth        = "auth"
	FramePing        = "ping"
	FramePong        = "pong"
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
	FrameAck         = "ack"
	FrameEvent       = "event"
	FrameError       = "error"
)

// Frame is the websocket envelope. Payload stays loose here and is
// decoded per frame type.
type Frame struct {
	Type    string         `json:"type"`
	Ts      int64          `json:"ts,omitempty"`
	ConnID  string         `json:"conn_id,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
	Event   *model.Event   `json:"event,omitempty"`
	Code    int            `json:"code,omitempty"`
	Msg     string         `json:"msg,omitempty"`
}

func ParseFrameJSON(raw []byte) (*Frame, error) {
	frame := &Frame{}
	if err := json.Unmarshal(raw, frame); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if frame.Type == "" {
		return nil, fmt.Errorf("frame has no type")
	}
	return frame, nil
}

type AuthPayload struct {
	Token string `json:"token"`
}

type SubscribePayload struct {
	ConversationNumber int64 `json:"conversation_number"`
}

func ExtractAuthPayload(f *Frame) (*AuthPayload, error) {
	if f == nil || f.Payload == nil {
		return nil, errs.New("auth frame has no payload")
	}
	return decode.DecodeMap[AuthPayload](f.Payload)
}

func ExtractSubscribePayload(f *Frame) (*SubscribePayload, error) {
	if f == nil || f.Payload == nil {
		return nil, errs.New("subscribe frame has no payload")
	}
	return decode.DecodeMap[SubscribePayload](f.Payload)
}

// ---- server-built frames ----

func BuildConnectionAck(connID string) *Frame {
	return &Frame{Type: FrameAck, Ts: time.Now().UnixMilli(), ConnID: connID}
}

func BuildPong() *Frame {
	return &Frame{Type: FramePong, Ts: time.Now().UnixMilli()}
}

func BuildEventFrame(e *model.Event) *Frame {
	return &Frame{Type: FrameEvent, Ts: time.Now().UnixMilli(), Event: e}
}

func BuildErrorFrame(err error) *Frame {
	f := &Frame{Type: FrameError, Ts: time.Now().UnixMilli()}
	var codeErr *errs.CodeError
	if e := errs.Unwrap(err); e != nil {
		if ce, ok := e.(*errs.CodeError); ok {
			codeErr = ce
		}
	}
	if codeErr != nil {
		f.Code = codeErr.Code
		f.Msg = codeErr.Msg
	} else {
		f.Code = errs.ServerInternalError
		f.Msg = err.Error()
	}
	return f
}

func MarshalFrame(f *Frame) []byte {
	data, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return data
}
