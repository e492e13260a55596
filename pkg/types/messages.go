package types

// Request and response bodies of the lobby HTTP API.

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// POST /api/lobby/create
type CreateLobbyRequest struct {
	MafiaCount int    `json:"mafiaCount,omitempty"`
	HostName   string `json:"hostName,omitempty"`
}

type CreateLobbyResponse struct {
	Code     string `json:"code"`
	PlayerID string `json:"playerId,omitempty"`
}

// POST /api/lobby/join
type JoinLobbyRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type JoinLobbyResponse struct {
	PlayerID  string   `json:"playerId"`
	Players   []Player `json:"players"`
	LobbyCode string   `json:"lobbyCode"`
}

// POST /api/lobby/mafia-count
type UpdateMafiaCountRequest struct {
	Code       string `json:"code"`
	MafiaCount int    `json:"mafiaCount"`
}

type UpdateMafiaCountResponse struct {
	MafiaCount int `json:"mafiaCount"`
	MaxMafia   int `json:"maxMafia"`
}

// POST /api/lobby/start
type StartGameRequest struct {
	Code string `json:"code"`
}

type StartGameResponse struct {
	Roles map[string]string `json:"roles"`
}

type APIError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	MaxAllowed *int   `json:"maxAllowed,omitempty"`
}
