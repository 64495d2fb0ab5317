package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aliskhannn/exam-prep/internal/domain/entities"
	"github.com/aliskhannn/exam-prep/internal/service"
)

type FlowRegistry interface {
	Get(ctx context.Context, userID string) *service.QuizFlow
}

type NewsService interface {
	Latest(ctx context.Context) ([]entities.Article, error)
}

type ActivityLister interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]*entities.Activity, error)
}

type ChatHub interface {
	Subscribe(room string) (<-chan entities.ChatMessage, func())
	Publish(msg entities.ChatMessage) (entities.ChatMessage, error)
}

type Handler struct {
	flows    FlowRegistry
	news     NewsService
	activity ActivityLister
	hub      ChatHub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(
	flows FlowRegistry,
	news NewsService,
	activity ActivityLister,
	hub ChatHub,
	logger *zap.Logger,
	allowedOrigins []string,
) *Handler {
	return &Handler{
		flows:    flows,
		news:     news,
		activity: activity,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Router builds the API routes wrapped in CORS handling.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(h.requireUser)

	api.HandleFunc("/quiz", h.getQuiz).Methods(http.MethodGet)
	api.HandleFunc("/quiz/generate", h.generate).Methods(http.MethodPost)
	api.HandleFunc("/quiz/select", h.selectOption).Methods(http.MethodPost)
	api.HandleFunc("/quiz/submit", h.submit).Methods(http.MethodPost)
	api.HandleFunc("/quiz/next", h.next).Methods(http.MethodPost)
	api.HandleFunc("/quiz/asked", h.clearAsked).Methods(http.MethodDelete)
	api.HandleFunc("/activity", h.listActivity).Methods(http.MethodGet)
	api.HandleFunc("/news", h.listNews).Methods(http.MethodGet)
	api.HandleFunc("/chat/{room}", h.chat).Methods(http.MethodGet)

	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", userHeader}),
	)(r)
}

// NewServer creates an HTTP server for the router.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
