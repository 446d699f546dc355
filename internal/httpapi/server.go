package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"todo-tracker/internal/service"
)

// Server is the HTTP API server.
type Server struct {
	todos  *service.TodoService
	secret []byte
	now    func() time.Time
	mux    *http.ServeMux
}

// New creates a new Server validating bearer tokens against secret.
func New(todos *service.TodoService, secret []byte) *Server {
	s := &Server{
		todos:  todos,
		secret: secret,
		now:    time.Now,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/todos", s.handleList)
	api.HandleFunc("POST /api/todos", s.handleCreate)
	api.HandleFunc("PUT /api/todos/{id}", s.handleUpdate)
	api.HandleFunc("DELETE /api/todos/{id}", s.handleDelete)
	api.HandleFunc("GET /api/todos/{id}/history", s.handleHistory)

	s.mux.Handle("/api/", s.requireAuth(api))
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeServiceError maps service sentinel errors to status codes.
// Anything unrecognized is a persistence or unexpected failure and
// surfaces as 500 with the message attached.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
