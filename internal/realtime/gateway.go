package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campusconnect/internal/auth"
	"github.com/shinyyama/campusconnect/internal/errs"
	"github.com/shinyyama/campusconnect/internal/event"
	"github.com/shinyyama/campusconnect/internal/service"
)

const maxFrameSize = 64 << 10

type Options struct {
	HandshakeTimeout time.Duration
	PingPeriod       time.Duration
	SendBuffer       int
	// AllowedOrigins empty accepts any origin.
	AllowedOrigins []string
}

// Gateway accepts websocket clients at GET /ws and runs the event protocol
// for each of them.
type Gateway struct {
	verifier      auth.Verifier
	registry      *Registry
	conversations service.ConversationService
	upgrader      websocket.Upgrader
	opts          Options
	log           *slog.Logger
}

func NewGateway(verifier auth.Verifier, registry *Registry, conversations service.ConversationService, opts Options, log *slog.Logger) *Gateway {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 30 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}
	g := &Gateway{
		verifier:      verifier,
		registry:      registry,
		conversations: conversations,
		opts:          opts,
		log:           log.With("component", "gateway"),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range g.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), u.Scheme+"://"+u.Host) {
			return true
		}
	}
	return false
}

// Handle authenticates before upgrading; a rejected credential never touches
// the registry.
func (g *Gateway) Handle(c echo.Context) error {
	req := c.Request()

	ctx, cancel := context.WithTimeout(req.Context(), g.opts.HandshakeTimeout)
	who, err := g.verifier.Verify(ctx, auth.BearerOrQueryToken(req))
	cancel()
	if err != nil {
		g.log.Debug("handshake rejected", "remote", c.RealIP(), "err", err)
		return echo.NewHTTPError(http.StatusUnauthorized, errs.Message(errs.ErrUnauthenticated)).SetInternal(err)
	}

	ws, err := g.upgrader.Upgrade(c.Response(), req, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		g.log.Warn("ws upgrade failed", "user_id", who.UserID, "err", err)
		return nil
	}

	conn := newConnection(ws, who.UserID, g.opts.SendBuffer, g.opts.PingPeriod)
	log := g.log.With("user_id", who.UserID, "conn_id", conn.ID())
	g.registry.Register(conn)
	log.Info("client connected")

	go conn.writeLoop()
	g.readLoop(auth.WithIdentity(req.Context(), who), conn, log)

	g.registry.Unregister(conn)
	conn.Close(websocket.CloseNormalClosure, "")
	log.Info("client disconnected", "rooms", len(conn.rooms))
	return nil
}

func (g *Gateway) readLoop(ctx context.Context, conn *Connection, log *slog.Logger) {
	deadline := 2 * g.opts.PingPeriod
	conn.ws.SetReadLimit(maxFrameSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(deadline))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, CloseSessionReplaced) {
				log.Debug("read failed", "err", err)
			}
			return
		}
		var in event.Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Name == "" {
			g.reply(conn, event.NewErrorEvent("bad_request", "malformed event", ""))
			continue
		}
		g.dispatch(ctx, conn, in, log)
	}
}

func (g *Gateway) dispatch(ctx context.Context, conn *Connection, in event.Inbound, log *slog.Logger) {
	uid := conn.UserID()
	switch in.Name {
	case event.SendMessage:
		var p event.SendMessagePayload
		if !g.decode(conn, in, &p) {
			return
		}
		msg, err := g.conversations.Send(ctx, uid, service.SendInput{
			ConversationID: p.ConversationID,
			RecipientID:    p.RecipientID,
			Text:           p.Text,
		})
		if err != nil {
			g.fail(conn, in.Name, err, log)
			return
		}
		g.reply(conn, event.NewMessageEvent(event.MessageSent, msg))

	case event.JoinChat:
		var p event.ChatPayload
		if !g.decode(conn, in, &p) {
			return
		}
		if _, err := g.conversations.Get(ctx, uid, p.ConversationID); err != nil {
			g.fail(conn, in.Name, err, log)
			return
		}
		conn.join(p.ConversationID)
		log.Debug("joined chat", "conversation_id", p.ConversationID, "rooms", len(conn.rooms))

	case event.LeaveChat:
		var p event.ChatPayload
		if !g.decode(conn, in, &p) {
			return
		}
		conn.leave(p.ConversationID)
		log.Debug("left chat", "conversation_id", p.ConversationID, "rooms", len(conn.rooms))

	case event.MarkRead:
		var p event.ChatPayload
		if !g.decode(conn, in, &p) {
			return
		}
		if err := g.conversations.MarkRead(ctx, uid, p.ConversationID); err != nil {
			g.fail(conn, in.Name, err, log)
		}

	default:
		g.reply(conn, event.NewErrorEvent("bad_request", "unknown event", in.Name))
	}
}

func (g *Gateway) decode(conn *Connection, in event.Inbound, dst any) bool {
	if len(in.Data) == 0 {
		g.reply(conn, event.NewErrorEvent("bad_request", "missing data", in.Name))
		return false
	}
	if err := json.Unmarshal(in.Data, dst); err != nil {
		g.reply(conn, event.NewErrorEvent("bad_request", "malformed data", in.Name))
		return false
	}
	return true
}

func (g *Gateway) fail(conn *Connection, origin string, err error, log *slog.Logger) {
	if errs.ToHTTP(err) >= http.StatusInternalServerError {
		log.Error("event failed", "event", origin, "err", err)
	} else {
		log.Debug("event rejected", "event", origin, "err", err)
	}
	g.reply(conn, event.NewErrorEvent(errs.Code(err), errs.Message(err), origin))
}

func (g *Gateway) reply(conn *Connection, ev event.Event) {
	_ = conn.Send(ev)
}
