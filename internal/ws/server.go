package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"chatrelay/internal/services/chat"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Engine is the part of the chat engine the transport drives.
type Engine interface {
	Handle(connectionID string, ev chat.Event) ([]chat.Outbound, error)
}

type Options struct {
	SendBuffer int
	ReadLimit  int64
	PingPeriod time.Duration
	PongWait   time.Duration // must be > PingPeriod
}

func (o *Options) setDefaults() {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
}

type WsServer struct {
	hub      *Hub
	router   *Router
	engine   Engine
	upgrader websocket.Upgrader
	opts     Options
}

func NewWsServer(h *Hub, engine Engine, opts Options) *WsServer {
	opts.setDefaults()
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Origin policy belongs to the deployment's proxy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: opts,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(s.opts.ReadLimit)

	conn := newClientConn(uuid.NewString(), rawConn, s.opts.SendBuffer)
	s.hub.Register(conn)
	zap.L().Debug("ws.connected", zap.String("conn", conn.id))

	s.hub.SendTo(conn.id, EventConnected, ConnectedBody{ConnectionID: conn.id})

	go conn.writePump(s.opts.PingPeriod)
	go s.reader(conn)
}

// Shutdown closes every connection. Each one still emits its Disconnect.
func (s *WsServer) Shutdown() {
	s.hub.CloseAll()
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Register(s.router, EventJoin, func(cc *ConnContext, req JoinRequest) error {
		return s.handle(cc, chat.Join{DisplayName: req.DisplayName, RoomID: req.RoomID})
	})
	Register(s.router, EventSend, func(cc *ConnContext, req SendRequest) error {
		return s.handle(cc, chat.Send{Text: req.Text, MediaURL: req.MediaURL})
	})
	Register(s.router, EventSendPrivate, func(cc *ConnContext, req SendPrivateRequest) error {
		return s.handle(cc, chat.SendPrivate{To: req.To, Text: req.Text, MediaURL: req.MediaURL})
	})
	Register(s.router, EventTyping, func(cc *ConnContext, req TypingRequest) error {
		return s.handle(cc, chat.SetTyping{IsTyping: req.IsTyping})
	})
	Register(s.router, EventReact, func(cc *ConnContext, req ReactRequest) error {
		return s.handle(cc, chat.React{MessageID: req.MessageID, Emoji: req.Emoji})
	})
	Register(s.router, EventSeen, func(cc *ConnContext, req SeenRequest) error {
		return s.handle(cc, chat.MarkSeen{MessageID: req.MessageID})
	})
}

// handle feeds the engine; outbound events reach sockets through the hub.
func (s *WsServer) handle(cc *ConnContext, ev chat.Event) error {
	_, err := s.engine.Handle(cc.ConnectionID, ev)
	return err
}

func (s *WsServer) reader(conn *clientConn) {
	defer s.leave(conn)

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(s.opts.PongWait))
	})

	cc := &ConnContext{ConnectionID: conn.id}
	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("conn", conn.id), zap.Error(err))
			}
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.hub.SendTo(conn.id, EventError, ErrorBody{Error: "malformed_frame"})
			continue
		}

		err = s.router.dispatch(cc, env)
		switch {
		case err == nil:
		case errors.Is(err, chat.ErrValidation):
			// ---- error -> {"event":"error", "body":{...}} ---------------
			s.hub.SendTo(conn.id, EventError, ErrorBody{Error: err.Error()})
		case errors.Is(err, chat.ErrNotFound), errors.Is(err, chat.ErrNotJoined):
			zap.L().Debug("ws.dropped",
				zap.String("conn", conn.id),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		default:
			zap.L().Warn("ws.dispatch",
				zap.String("conn", conn.id),
				zap.String("event", env.Event),
				zap.Error(err),
			)
		}
	}
}

// leave runs exactly once per connection, whatever noticed the loss first.
func (s *WsServer) leave(conn *clientConn) {
	conn.leaveOnce.Do(func() {
		if _, err := s.engine.Handle(conn.id, chat.Disconnect{}); err != nil {
			zap.L().Warn("ws.disconnect", zap.String("conn", conn.id), zap.Error(err))
		}
		s.hub.Unregister(conn.id)
		conn.close()
		zap.L().Debug("ws.disconnected", zap.String("conn", conn.id))
	})
}
