package lobby

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/engine"
)

type EventType string

const (
	EvtSnapshot          EventType = "snapshot"
	EvtParticipantJoined EventType = "participant_joined"
	EvtGameStarted       EventType = "game_started"
)

// Event is one entry of a lobby's ordered stream. Seq increases by one per
// mutation; a snapshot carries the seq it reflects. Maps and slices in an
// Event are shared between subscribers and must be treated as read-only.
type Event struct {
	Type EventType
	Seq  int

	Participant Participant // participant_joined

	Participants []Participant // snapshot
	Phase        Phase         // snapshot

	Roles map[string]engine.Role // game_started, snapshot once locked
}

func (l *Lobby) snapshot() Event {
	ev := Event{
		Type:         EvtSnapshot,
		Seq:          l.seq,
		Participants: slices.Clone(l.state.Participants),
		Phase:        l.state.Phase,
	}
	if l.state.Phase == PhaseLocked {
		ev.Roles = maps.Clone(l.state.Roles)
	}
	return ev
}

// subscribe registers the outbox and hands it the snapshot before any other
// message is processed, so the subscriber sees every later event exactly once.
func (l *Lobby) subscribe(id string, outbox chan Event) error {
	if _, ok := l.subscribers[id]; ok {
		return ErrDuplicateSubscriber
	}

	select {
	case outbox <- l.snapshot():
	default:
		close(outbox)
		l.log.Warn("subscriber could not take snapshot", zap.String("subscriber", id))
		return ErrSubscriberBlocked
	}

	l.subscribers[id] = outbox
	l.log.Debug("subscriber joined",
		zap.String("subscriber", id),
		zap.Int("subscribers", len(l.subscribers)))
	return nil
}

func (l *Lobby) broadcast(ev Event) {
	for id, ch := range l.subscribers {
		select {
		case ch <- ev:
			//ok
		default:
			// Subscriber is slow/full - drop them.
			close(ch)
			delete(l.subscribers, id)
			l.log.Warn("dropped slow subscriber",
				zap.String("subscriber", id),
				zap.String("event", string(ev.Type)))
		}
	}
}
