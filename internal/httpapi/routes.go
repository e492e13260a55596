package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/mafia-lobby-backend/internal/hub"
	"github.com/DoyleJ11/mafia-lobby-backend/internal/ws"
)

type Options struct {
	WS     ws.Options
	Logger *zap.Logger
}

func SetupRoutes(h *hub.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.WS.Logger == nil {
		opts.WS.Logger = log
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors)

	r.Get("/healthz", Healthz)

	r.Route("/api/lobby", func(r chi.Router) {
		r.Post("/create", CreateLobby(h, log))
		r.Post("/join", JoinLobby(h, log))
		r.Post("/mafia-count", UpdateMafiaCount(h, log))
		r.Post("/start", StartGame(h, log))
		r.Get("/{code}", GetLobby(h, log))
		r.Get("/{code}/connect", ws.Handler(h, opts.WS))
	})
	r.Get("/ws", ws.Handler(h, opts.WS))
	return r
}
