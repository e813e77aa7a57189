package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sgtbyhqi/genz-planner-app/internal/config"
	"github.com/sgtbyhqi/genz-planner-app/internal/handlers"
	"github.com/sgtbyhqi/genz-planner-app/internal/identity"
	"github.com/sgtbyhqi/genz-planner-app/internal/middleware"
	"github.com/sgtbyhqi/genz-planner-app/internal/workspace"
)

type Server struct {
	router *chi.Mux
	port   string
}

func New(cfg config.Config, registry *workspace.Registry, authenticator *identity.Authenticator) *Server {
	sessions := middleware.NewSessions(cfg.SessionSecret, registry)

	authHandler := handlers.NewAuthHandler(authenticator, sessions, registry, cfg.TokenFallbackAnonymous)
	plannerHandler := handlers.NewPlannerHandler()
	streamHandler := handlers.NewStreamHandler()

	router := chi.NewRouter()

	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", health)

	router.Post("/auth/anonymous", authHandler.Anonymous)
	router.Post("/auth/token", authHandler.Token)
	router.Get("/auth/login", authHandler.Login)
	router.Get("/auth/callback", authHandler.Callback)
	router.Post("/auth/logout", authHandler.Logout)

	router.Group(func(r chi.Router) {
		r.Use(sessions.RequireWorkspace)

		r.Get("/ws", streamHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))

			r.Get("/api/dashboard", plannerHandler.Dashboard)
			r.Get("/api/profile", authHandler.Profile)

			r.Post("/api/tasks", plannerHandler.CreateTask)
			r.Patch("/api/tasks/{id}", plannerHandler.UpdateTask)
			r.Post("/api/tasks/{id}/toggle", plannerHandler.ToggleTask)
			r.Post("/api/tasks/{id}/subtasks/{subtaskID}/toggle", plannerHandler.ToggleSubtask)
			r.Delete("/api/tasks/{id}", plannerHandler.DeleteTask)

			r.Post("/api/habits", plannerHandler.CreateHabit)
			r.Post("/api/habits/{id}/toggle", plannerHandler.ToggleHabit)
			r.Delete("/api/habits/{id}", plannerHandler.DeleteHabit)

			r.Get("/api/reflection", plannerHandler.Reflection)
			r.Put("/api/reflection", plannerHandler.SaveReflection)
			r.Get("/api/reflections/{date}", plannerHandler.ReflectionByDate)

			r.Post("/api/routine/{block}/{activityID}/toggle", plannerHandler.ToggleRoutine)
			r.Post("/api/pomodoro/{action}", plannerHandler.Pomodoro)
		})
	})

	return &Server{router: router, port: cfg.Port}
}

// NewUnavailable serves only the blocking configuration message. It is used
// when startup credentials are missing.
func NewUnavailable(port string, message string) *Server {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": message, "action": "reload"})
	})

	return &Server{router: router, port: port}
}

func (server *Server) Handler() http.Handler {
	return server.router
}

func (server *Server) Start() error {
	address := ":" + server.port
	slog.Info("starting server", "address", address)
	return http.ListenAndServe(address, server.router)
}

func health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
