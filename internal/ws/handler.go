package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/hub"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/lobby"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/types"
)

type Options struct {
	OutboxSize     int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	OriginPatterns []string
	Logger         *zap.Logger
}

func (o *Options) defaults() {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 16
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Handler upgrades to a websocket and streams one lobby's events: the
// snapshot first, then every later event in order. The code comes from the
// {code} route parameter or the ?code= query.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts.defaults()

	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if code == "" {
			code = r.URL.Query().Get("code")
		}
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		lb, err := h.Get(code)
		if err != nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			return
		}
		defer conn.CloseNow()

		subID := uuid.NewString()
		log := opts.Logger.With(zap.String("code", lb.Code()), zap.String("subscriber", subID))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan lobby.Event, opts.OutboxSize)
		if err := lb.Subscribe(ctx, subID, out); err != nil {
			log.Warn("subscribe failed", zap.Error(err))
			conn.Close(websocket.StatusTryAgainLater, "could not subscribe")
			return
		}
		defer func() {
			// The request context is gone by now.
			uctx, ucancel := context.WithTimeout(context.Background(), time.Second)
			defer ucancel()
			if err := lb.Unsubscribe(uctx, subID); err != nil && !errors.Is(err, lobby.ErrLobbyClosed) {
				log.Debug("unsubscribe failed", zap.Error(err))
			}
		}()
		log.Debug("push channel open")

		go writeLoop(ctx, cancel, conn, out, opts.WriteTimeout, log)
		go pingLoop(ctx, cancel, conn, opts.PingInterval, opts.WriteTimeout)

		readLoop(ctx, conn, opts.WriteTimeout)
		log.Debug("push channel closed")
	}
}

// writeLoop drains the outbox. A failed write ends the connection, which in turn
// removes the subscriber. A closed outbox means the lobby dropped us.
func writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan lobby.Event, timeout time.Duration, log *zap.Logger) {
	defer cancel()
	for ev := range out {
		wctx, wcancel := context.WithTimeout(ctx, timeout)
		err := wsjson.Write(wctx, conn, types.FromEvent(ev))
		wcancel()
		if err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
	}
	conn.Close(websocket.StatusGoingAway, "stream ended")
}

func pingLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, every, timeout time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, timeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				cancel()
				return
			}
		}
	}
}

// readLoop only serves keepalive frames; lobby operations go through the HTTP API.
func readLoop(ctx context.Context, conn *websocket.Conn, timeout time.Duration) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Clean close, going away or a dead peer all end the stream.
			return
		}

		var cm types.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			_ = writeWithTimeout(ctx, conn, types.ErrorMessage{Type: types.MsgError, Error: "bad json"}, timeout)
			continue
		}

		switch cm.Type {
		case "ping":
			_ = writeWithTimeout(ctx, conn, types.Header{Type: types.MsgPong}, timeout)
		default:
			_ = writeWithTimeout(ctx, conn, types.ErrorMessage{Type: types.MsgError, Error: "unknown type"}, timeout)
		}
	}
}

func writeWithTimeout(ctx context.Context, conn *websocket.Conn, v any, timeout time.Duration) error {
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}
