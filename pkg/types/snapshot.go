package types

// LobbyView is the body of GET /api/lobby/{code}.
//
// Roles is only present once the lobby is locked.
type LobbyView struct {
	Code       string            `json:"code"`
	Players    []Player          `json:"players"`
	Phase      string            `json:"phase"`
	Locked     bool              `json:"locked"`
	MafiaCount int               `json:"mafiaCount,omitempty"`
	Roles      map[string]string `json:"roles,omitempty"`
	Observers  int               `json:"observers"`
	Seq        int               `json:"seq"`
}
