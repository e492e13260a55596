package lobby

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/engine"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/ids"
)

var ErrSessionLocked = errors.New("game already started")
var ErrSessionFull = errors.New("lobby is full")
var ErrNotEnoughParticipants = errors.New("not enough players to start")
var ErrLobbyClosed = errors.New("lobby closed")
var ErrDuplicateSubscriber = errors.New("subscriber already registered")
var ErrSubscriberBlocked = errors.New("subscriber outbox cannot take the snapshot")
var ErrAlreadyStarted = errors.New("lobby goroutine already running")

type Phase string

const (
	PhaseOpen   Phase = "open"
	PhaseLocked Phase = "locked"
)

type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// State is the session record. Only the lobby goroutine touches it.
type State struct {
	Code         string
	Phase        Phase
	Participants []Participant
	RoleOverride int
	Roles        map[string]engine.Role
}

type Msg interface{ isLobbyMsg() }

type Join struct {
	DisplayName string
	Reply       chan JoinReply
}

func (Join) isLobbyMsg() {}

type SetRoleOverride struct {
	Count int
	Reply chan OverrideReply
}

func (SetRoleOverride) isLobbyMsg() {}

type Start struct {
	Reply chan StartReply
}

func (Start) isLobbyMsg() {}

type Subscribe struct {
	SubscriberID string
	Outbox       chan Event // where this subscriber wants to receive events
	Reply        chan error
}

func (Subscribe) isLobbyMsg() {}

// Unsubscribe is a no-op for unknown ids. With Outbox set, the entry is only
// removed while it still holds that outbox. Reply may be nil.
type Unsubscribe struct {
	SubscriberID string
	Outbox       chan Event
	Reply        chan struct{}
}

func (Unsubscribe) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type JoinResult struct {
	ParticipantID string
	Participants  []Participant
}

type JoinReply struct {
	Result JoinResult
	Err    error
}

type OverrideResult struct {
	Count      int
	MaxAllowed int
}

type OverrideReply struct {
	Result OverrideResult
	Err    error
}

type StartReply struct {
	Roles map[string]engine.Role
	Err   error
}

type View struct {
	Code           string
	Phase          Phase
	Participants   []Participant
	RoleOverride   int
	Roles          map[string]engine.Role
	NumSubscribers int
	Seq            int
}

type Options struct {
	Code         string
	RoleOverride int
	// MinParticipants and MaxParticipants are lobby policy; zero disables the check.
	MinParticipants int
	MaxParticipants int
	InboxSize       int
	IDs             ids.Source
	// Rand drives the role shuffle. It is only used from the lobby goroutine
	// and must not be shared between lobbies.
	Rand   *rand.Rand
	Logger *zap.Logger
}

type Lobby struct {
	inbox       chan Msg
	state       State
	seq         int
	subscribers map[string]chan Event
	opts        Options
	log         *zap.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
	startOnce   sync.Once
	started     atomic.Bool
}

// New builds a lobby without starting its goroutine; call Start once it is
// reachable. NewLobby does both.
func New(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.InboxSize <= 0 {
		opts.InboxSize = 64
	}
	if opts.IDs == nil {
		opts.IDs = ids.NewRandom(ids.DefaultCodeLength)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Lobby{
		inbox: make(chan Msg, opts.InboxSize),
		state: State{
			Code:         opts.Code,
			Phase:        PhaseOpen,
			RoleOverride: opts.RoleOverride,
			Roles:        map[string]engine.Role{},
		},
		subscribers: make(map[string]chan Event),
		opts:        opts,
		log:         opts.Logger.With(zap.String("code", opts.Code)),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

func NewLobby(parent context.Context, opts Options) *Lobby {
	l := New(parent, opts)
	l.Start()
	return l
}

func (l *Lobby) Start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		go l.loop()
	})
}

// Seat joins a participant without going through the inbox. It is only valid
// before Start, while the caller is the lobby's sole owner.
func (l *Lobby) Seat(displayName string) (JoinResult, error) {
	if l.started.Load() {
		return JoinResult{}, ErrAlreadyStarted
	}
	return l.join(displayName)
}

func (l *Lobby) Code() string { return l.state.Code }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }


func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				res, err := l.join(msg.DisplayName)
				msg.Reply <- JoinReply{Result: res, Err: err}

			case SetRoleOverride:
				res, err := l.setRoleOverride(msg.Count)
				msg.Reply <- OverrideReply{Result: res, Err: err}

			case Start:
				roles, err := l.start()
				msg.Reply <- StartReply{Roles: roles, Err: err}

			case Subscribe:
				msg.Reply <- l.subscribe(msg.SubscriberID, msg.Outbox)

			case Unsubscribe:
				if ch, ok := l.subscribers[msg.SubscriberID]; ok && (msg.Outbox == nil || msg.Outbox == ch) {
					close(ch)
					delete(l.subscribers, msg.SubscriberID)
					l.log.Debug("subscriber left", zap.String("subscriber", msg.SubscriberID))
				}
				if msg.Reply != nil {
					msg.Reply <- struct{}{}
				}

			case GetState:
				msg.Reply <- l.view()
			}
		}
	}
}

func (l *Lobby) join(displayName string) (JoinResult, error) {
	if l.state.Phase == PhaseLocked {
		return JoinResult{}, ErrSessionLocked
	}
	name, err := NormalizeDisplayName(displayName)
	if err != nil {
		return JoinResult{}, err
	}
	if limit := l.opts.MaxParticipants; limit > 0 && len(l.state.Participants) >= limit {
		return JoinResult{}, ErrSessionFull
	}

	p := Participant{ID: l.newParticipantID(), DisplayName: name}
	l.state.Participants = append(l.state.Participants, p)
	l.seq++
	l.broadcast(Event{Type: EvtParticipantJoined, Seq: l.seq, Participant: p})

	l.log.Info("participant joined",
		zap.String("participant_id", p.ID),
		zap.Int("participants", len(l.state.Participants)))

	return JoinResult{ParticipantID: p.ID, Participants: slices.Clone(l.state.Participants)}, nil
}

func (l *Lobby) newParticipantID() string {
	for {
		id := l.opts.IDs.NewParticipantID()
		if !slices.ContainsFunc(l.state.Participants, func(p Participant) bool { return p.ID == id }) {
			return id
		}
	}
}

func (l *Lobby) setRoleOverride(count int) (OverrideResult, error) {
	if l.state.Phase == PhaseLocked {
		return OverrideResult{}, ErrSessionLocked
	}
	n := len(l.state.Participants)
	if err := engine.Validate(n, count); err != nil {
		l.log.Debug("mafia count rejected", zap.Int("count", count), zap.Error(err))
		return OverrideResult{}, err
	}

	l.state.RoleOverride = count
	return OverrideResult{Count: count, MaxAllowed: engine.MaxPrimary(n)}, nil
}

func (l *Lobby) start() (map[string]engine.Role, error) {
	if l.state.Phase == PhaseLocked {
		return nil, ErrSessionLocked
	}
	n := len(l.state.Participants)
	if n < l.opts.MinParticipants {
		return nil, ErrNotEnoughParticipants
	}
	// Players may have joined since the override was accepted.
	if err := engine.Validate(n, engine.PrimaryCount(n, l.state.RoleOverride)); err != nil {
		l.log.Debug("start rejected", zap.Error(err))
		return nil, err
	}

	playerIDs := make([]string, n)
	for i, p := range l.state.Participants {
		playerIDs[i] = p.ID
	}
	l.state.Roles = engine.Assign(playerIDs, l.state.RoleOverride, l.opts.Rand)
	l.state.Phase = PhaseLocked
	l.seq++
	l.broadcast(Event{Type: EvtGameStarted, Seq: l.seq, Roles: maps.Clone(l.state.Roles)})

	l.log.Info("game started",
		zap.Int("participants", n),
		zap.Int("mafia", engine.CountRoles(l.state.Roles)[engine.RoleMafia]))

	return maps.Clone(l.state.Roles), nil
}

func (l *Lobby) view() View {
	return View{
		Code:           l.state.Code,
		Phase:          l.state.Phase,
		Participants:   slices.Clone(l.state.Participants),
		RoleOverride:   l.state.RoleOverride,
		Roles:          maps.Clone(l.state.Roles),
		NumSubscribers: len(l.subscribers),
		Seq:            l.seq,
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.subscribers {
		close(ch) // no more events
		delete(l.subscribers, id)
	}
	close(l.done)
	l.log.Debug("lobby stopped")
}
