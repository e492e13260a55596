package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/engine"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/ids"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/lobby"
)

var ErrSessionNotFound = errors.New("lobby not found")
var ErrCodeSpaceExhausted = errors.New("could not allocate a free lobby code")
var ErrHubClosed = errors.New("hub closed")

const defaultCodeAttempts = 16

type Options struct {
	IDs             ids.Source
	MinParticipants int
	MaxParticipants int
	InboxSize       int
	MaxCodeAttempts int
	Logger          *zap.Logger
}

type CreateOptions struct {
	RoleOverride int    // zero picks the mafia count automatically at start
	HostName     string // optional; joins the host as the first player
}

type Created struct {
	Code  string
	Lobby *lobby.Lobby
	Host  *lobby.JoinResult // nil without a host name
}

// Hub maps lobby codes to running lobbies. Distinct codes never contend:
// insertion is a single LoadOrStore.
type Hub struct {
	lobbies sync.Map // code -> *lobby.Lobby
	opts    Options
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	closed  atomic.Bool
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.IDs == nil {
		opts.IDs = ids.NewRandom(ids.DefaultCodeLength)
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = defaultCodeAttempts
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Hub{
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (h *Hub) Create(ctx context.Context, co CreateOptions) (Created, error) {
	if h.closed.Load() {
		return Created{}, ErrHubClosed
	}
	if err := ctx.Err(); err != nil {
		return Created{}, err
	}
	if co.RoleOverride < 0 {
		return Created{}, engine.ErrInvalidRoleCount
	}
	if co.HostName != "" {
		if _, err := lobby.NormalizeDisplayName(co.HostName); err != nil {
			return Created{}, err
		}
	}

	out, err := h.insertFresh(co)
	if err != nil {
		return Created{}, err
	}

	h.log.Info("lobby created",
		zap.String("code", out.Code),
		zap.Int("mafia_override", co.RoleOverride),
		zap.Bool("host", out.Host != nil))
	return out, nil
}

// insertFresh publishes a new lobby under an unused code. The host is seated
// before the lobby becomes reachable, so it always holds the first seat.
func (h *Hub) insertFresh(co CreateOptions) (Created, error) {
	for attempt := 0; attempt < h.opts.MaxCodeAttempts; attempt++ {
		raw, err := h.opts.IDs.NewCode()
		if err != nil {
			return Created{}, err
		}
		code := ids.NormalizeCode(raw)

		lb := lobby.New(h.ctx, lobby.Options{
			Code:            code,
			RoleOverride:    co.RoleOverride,
			MinParticipants: h.opts.MinParticipants,
			MaxParticipants: h.opts.MaxParticipants,
			InboxSize:       h.opts.InboxSize,
			IDs:             h.opts.IDs,
			Logger:          h.log,
		})
		out := Created{Code: code, Lobby: lb}
		if co.HostName != "" {
			res, err := lb.Seat(co.HostName)
			if err != nil {
				lb.Shutdown()
				return Created{}, fmt.Errorf("seat host: %w", err)
			}
			out.Host = &res
		}

		if _, loaded := h.lobbies.LoadOrStore(code, lb); loaded {
			lb.Shutdown()
			h.log.Debug("collision on code, regenerating", zap.String("code", code))
			continue
		}
		lb.Start()
		return out, nil
	}
	return Created{}, ErrCodeSpaceExhausted
}

// Get never creates a lobby.
func (h *Hub) Get(code string) (*lobby.Lobby, error) {
	v, ok := h.lobbies.Load(ids.NormalizeCode(code))
	if !ok {
		return nil, ErrSessionNotFound
	}
	return v.(*lobby.Lobby), nil
}

func (h *Hub) Len() int {
	n := 0
	h.lobbies.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Remove stops and forgets a lobby. Unknown codes are ignored.
func (h *Hub) Remove(code string) {
	if v, ok := h.lobbies.LoadAndDelete(ids.NormalizeCode(code)); ok {
		v.(*lobby.Lobby).Shutdown()
	}
}

func (h *Hub) Shutdown() {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.lobbies.Range(func(k, v any) bool {
		h.lobbies.Delete(k)
		v.(*lobby.Lobby).Shutdown()
		return true
	})
	h.cancel()
	h.log.Info("hub stopped")
}
