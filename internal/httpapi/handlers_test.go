package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/hub"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/ids"
	"github.com/DoyleJ11/mafia-lobby-backend/pkg/types"
)

func newTestServer(t *testing.T, opts hub.Options) (*hub.Hub, http.Handler) {
	t.Helper()
	if opts.IDs == nil {
		opts.IDs = &ids.Sequence{}
	}
	h := hub.NewHub(context.Background(), opts)
	t.Cleanup(h.Shutdown)
	return h, SetupRoutes(h, Options{})
}

func do(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createLobby(t *testing.T, handler http.Handler, body any) string {
	t.Helper()
	rec := do(t, handler, http.MethodPost, "/api/lobby/create", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[types.CreateLobbyResponse](t, rec).Code
}

func joinPlayers(t *testing.T, handler http.Handler, code string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		rec := do(t, handler, http.MethodPost, "/api/lobby/join", types.JoinLobbyRequest{Code: code, Name: fmt.Sprintf("P%d", i)})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestCreateJoinStart_FivePlayers(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})

	code := createLobby(t, handler, nil)
	require.NotEmpty(t, code)

	var last types.JoinLobbyResponse
	for i := 1; i <= 5; i++ {
		rec := do(t, handler, http.MethodPost, "/api/lobby/join", types.JoinLobbyRequest{Code: code, Name: fmt.Sprintf("P%d", i)})
		require.Equal(t, http.StatusOK, rec.Code)
		last = decodeBody[types.JoinLobbyResponse](t, rec)
	}
	assert.Len(t, last.Players, 5)
	assert.Equal(t, code, last.LobbyCode)
	assert.Equal(t, "P5", last.Players[4].Name)

	rec := do(t, handler, http.MethodPost, "/api/lobby/start", types.StartGameRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	roles := decodeBody[types.StartGameResponse](t, rec).Roles
	require.Len(t, roles, 5)

	counts := map[string]int{}
	for _, r := range roles {
		counts[r]++
	}
	assert.Equal(t, map[string]int{"mafia": 1, "doctor": 1, "police": 1, "villager": 2}, counts)

	rec = do(t, handler, http.MethodPost, "/api/lobby/start", types.StartGameRequest{Code: code})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "locked", decodeBody[types.APIError](t, rec).Error)

	rec = do(t, handler, http.MethodPost, "/api/lobby/join", types.JoinLobbyRequest{Code: code, Name: "Late"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreate_WithHost(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})

	rec := do(t, handler, http.MethodPost, "/api/lobby/create", types.CreateLobbyRequest{HostName: "Gina", MafiaCount: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody[types.CreateLobbyResponse](t, rec)
	require.NotEmpty(t, resp.PlayerID)

	rec = do(t, handler, http.MethodGet, "/api/lobby/"+resp.Code, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[types.LobbyView](t, rec)
	assert.Equal(t, []types.Player{{ID: resp.PlayerID, Name: "Gina"}}, view.Players)
	assert.Equal(t, 1, view.MafiaCount)
	assert.False(t, view.Locked)
	assert.Equal(t, "open", view.Phase)
}

func TestCreate_NegativeMafiaCount(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})
	rec := do(t, handler, http.MethodPost, "/api/lobby/create", types.CreateLobbyRequest{MafiaCount: -2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_mafia_count", decodeBody[types.APIError](t, rec).Error)
}

func TestMafiaCount(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})
	code := createLobby(t, handler, nil)
	joinPlayers(t, handler, code, 6)

	rec := do(t, handler, http.MethodPost, "/api/lobby/mafia-count", types.UpdateMafiaCountRequest{Code: code, MafiaCount: 3})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeBody[types.APIError](t, rec)
	assert.Equal(t, "mafia_not_minority", apiErr.Error)
	require.NotNil(t, apiErr.MaxAllowed)
	assert.Equal(t, 2, *apiErr.MaxAllowed)

	rec = do(t, handler, http.MethodPost, "/api/lobby/mafia-count", types.UpdateMafiaCountRequest{Code: code, MafiaCount: 0})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_mafia_count", decodeBody[types.APIError](t, rec).Error)

	rec = do(t, handler, http.MethodPost, "/api/lobby/mafia-count", types.UpdateMafiaCountRequest{Code: code, MafiaCount: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.UpdateMafiaCountResponse{MafiaCount: 2, MaxMafia: 2}, decodeBody[types.UpdateMafiaCountResponse](t, rec))

	rec = do(t, handler, http.MethodPost, "/api/lobby/start", types.StartGameRequest{Code: code})
	require.Equal(t, http.StatusOK, rec.Code)
	mafia := 0
	for _, r := range decodeBody[types.StartGameResponse](t, rec).Roles {
		if r == "mafia" {
			mafia++
		}
	}
	assert.Equal(t, 2, mafia)

	rec = do(t, handler, http.MethodGet, "/api/lobby/"+code, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[types.LobbyView](t, rec)
	assert.True(t, view.Locked)
	assert.Len(t, view.Roles, 6)
}

func TestUnknownLobby(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})

	for _, path := range []string{"/api/lobby/join", "/api/lobby/start", "/api/lobby/mafia-count"} {
		rec := do(t, handler, http.MethodPost, path, map[string]any{"code": "NOPE00", "name": "x", "mafiaCount": 1})
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "not_found", decodeBody[types.APIError](t, rec).Error, path)
	}

	rec := do(t, handler, http.MethodGet, "/api/lobby/NOPE00", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestJoin_CodeIsCaseInsensitive(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{IDs: &ids.Sequence{Codes: []string{"QWERTY"}}})
	code := createLobby(t, handler, nil)
	require.Equal(t, "QWERTY", code)

	rec := do(t, handler, http.MethodPost, "/api/lobby/join", types.JoinLobbyRequest{Code: "qwerty", Name: "Ann"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QWERTY", decodeBody[types.JoinLobbyResponse](t, rec).LobbyCode)
}

func TestPolicyErrors(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{MinParticipants: 5, MaxParticipants: 5})
	code := createLobby(t, handler, nil)
	joinPlayers(t, handler, code, 4)

	rec := do(t, handler, http.MethodPost, "/api/lobby/start", types.StartGameRequest{Code: code})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "not_enough_players", decodeBody[types.APIError](t, rec).Error)

	joinPlayers(t, handler, code, 1)
	rec = do(t, handler, http.MethodPost, "/api/lobby/join", types.JoinLobbyRequest{Code: code, Name: "Sixth"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "full", decodeBody[types.APIError](t, rec).Error)

	rec = do(t, handler, http.MethodPost, "/api/lobby/join", types.JoinLobbyRequest{Code: code, Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBadJSON(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/lobby/join", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", decodeBody[types.APIError](t, rec).Error)
}

func TestCORSAndHealthz(t *testing.T) {
	_, handler := newTestServer(t, hub.Options{})

	rec := do(t, handler, http.MethodOptions, "/api/lobby/join", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(t, handler, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClassify_Internal(t *testing.T) {
	status, body := classify(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Message)
}
