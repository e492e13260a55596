package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/engine"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/hub"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/lobby"
	"github.com/DoyleJ11/mafia-lobby-backend/pkg/types"
)

func CreateLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateLobbyRequest
		if !decode(w, r, &req, true) {
			return
		}

		created, err := h.Create(r.Context(), hub.CreateOptions{
			RoleOverride: req.MafiaCount,
			HostName:     req.HostName,
		})
		if err != nil {
			writeError(w, log, err)
			return
		}

		resp := types.CreateLobbyResponse{Code: created.Code}
		if created.Host != nil {
			resp.PlayerID = created.Host.ParticipantID
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

func JoinLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.JoinLobbyRequest
		if !decode(w, r, &req, false) {
			return
		}

		lb, err := h.Get(req.Code)
		if err != nil {
			writeError(w, log, err)
			return
		}
		res, err := lb.Join(r.Context(), req.Name)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, types.JoinLobbyResponse{
			PlayerID:  res.ParticipantID,
			Players:   toPlayers(res.Participants),
			LobbyCode: lb.Code(),
		})
	}
}

func UpdateMafiaCount(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.UpdateMafiaCountRequest
		if !decode(w, r, &req, false) {
			return
		}

		lb, err := h.Get(req.Code)
		if err != nil {
			writeError(w, log, err)
			return
		}
		res, err := lb.SetRoleOverride(r.Context(), req.MafiaCount)
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, types.UpdateMafiaCountResponse{MafiaCount: res.Count, MaxMafia: res.MaxAllowed})
	}
}

func StartGame(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.StartGameRequest
		if !decode(w, r, &req, false) {
			return
		}

		lb, err := h.Get(req.Code)
		if err != nil {
			writeError(w, log, err)
			return
		}
		roles, err := lb.StartGame(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}

		writeJSON(w, http.StatusOK, types.StartGameResponse{Roles: toRoleNames(roles)})
	}
}

func GetLobby(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, err := h.Get(chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		v, err := lb.View(r.Context())
		if err != nil {
			writeError(w, log, err)
			return
		}

		view := types.LobbyView{
			Code:       v.Code,
			Players:    toPlayers(v.Participants),
			Phase:      string(v.Phase),
			Locked:     v.Phase == lobby.PhaseLocked,
			MafiaCount: v.RoleOverride,
			Observers:  v.NumSubscribers,
			Seq:        v.Seq,
		}
		if view.Locked {
			view.Roles = toRoleNames(v.Roles)
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// decode reads a JSON body. With allowEmpty an empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, types.APIError{Error: "bad_request", Message: "invalid JSON body"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, types.APIError) {
	body := types.APIError{Message: err.Error()}

	var minority *engine.MinorityError
	switch {
	case errors.Is(err, hub.ErrSessionNotFound):
		body.Error = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, lobby.ErrSessionLocked):
		body.Error = "locked"
		return http.StatusConflict, body
	case errors.Is(err, lobby.ErrSessionFull):
		body.Error = "full"
		return http.StatusConflict, body
	case errors.As(err, &minority):
		body.Error = "mafia_not_minority"
		body.MaxAllowed = &minority.MaxAllowed
		return http.StatusBadRequest, body
	case errors.Is(err, engine.ErrInvalidRoleCount):
		body.Error = "invalid_mafia_count"
		return http.StatusBadRequest, body
	case errors.Is(err, lobby.ErrInvalidDisplayName):
		body.Error = "invalid_name"
		return http.StatusBadRequest, body
	case errors.Is(err, lobby.ErrNotEnoughParticipants):
		body.Error = "not_enough_players"
		return http.StatusBadRequest, body
	case errors.Is(err, hub.ErrCodeSpaceExhausted),
		errors.Is(err, hub.ErrHubClosed),
		errors.Is(err, lobby.ErrLobbyClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		body.Error = "unavailable"
		return http.StatusServiceUnavailable, body
	default:
		body.Error = "internal"
		body.Message = "internal error"
		return http.StatusInternalServerError, body
	}
}

func toPlayers(ps []lobby.Participant) []types.Player {
	out := make([]types.Player, len(ps))
	for i, p := range ps {
		out[i] = types.Player{ID: p.ID, Name: p.DisplayName}
	}
	return out
}

func toRoleNames(roles map[string]engine.Role) map[string]string {
	out := make(map[string]string, len(roles))
	for id, r := range roles {
		out[id] = string(r)
	}
	return out
}
