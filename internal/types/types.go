package types

import (
	"github.com/DoyleJ11/mafia-lobby-backend/internal/engine"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/lobby"
)

const (
	MsgSnapshot          = "snapshot"
	MsgParticipantJoined = "participant_joined"
	MsgGameStarted       = "game_started"
	MsgPong              = "pong"
	MsgError             = "error"
)

type ClientMessage struct {
	Type string `json:"type"` // "ping"
}

type Header struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
}

type SnapshotMessage struct {
	Header
	Participants []lobby.Participant    `json:"participants"`
	Phase        lobby.Phase            `json:"phase"`
	Locked       bool                   `json:"locked"`
	Roles        map[string]engine.Role `json:"roles,omitempty"`
}

type ParticipantJoinedMessage struct {
	Header
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type GameStartedMessage struct {
	Header
	Roles map[string]engine.Role `json:"roles"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// FromEvent maps a lobby event onto its push-channel frame.
func FromEvent(ev lobby.Event) any {
	h := Header{Type: string(ev.Type), Seq: ev.Seq}
	switch ev.Type {
	case lobby.EvtSnapshot:
		participants := ev.Participants
		if participants == nil {
			participants = []lobby.Participant{}
		}
		return SnapshotMessage{
			Header:       h,
			Participants: participants,
			Phase:        ev.Phase,
			Locked:       ev.Phase == lobby.PhaseLocked,
			Roles:        ev.Roles,
		}
	case lobby.EvtParticipantJoined:
		return ParticipantJoinedMessage{Header: h, ID: ev.Participant.ID, DisplayName: ev.Participant.DisplayName}
	case lobby.EvtGameStarted:
		return GameStartedMessage{Header: h, Roles: ev.Roles}
	default:
		return ErrorMessage{Type: MsgError, Error: "unknown event " + string(ev.Type)}
	}
}
