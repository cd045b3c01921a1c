package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	r.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.Logout).Methods(http.MethodPost)

	r.HandleFunc("/api/me", h.GetCurrentUser).Methods(http.MethodGet)
	r.HandleFunc("/api/timers", h.ListTimers).Methods(http.MethodGet)
	r.HandleFunc("/api/timers", h.CreateTimer).Methods(http.MethodPost)
	r.HandleFunc("/api/timers/{id}/stop", h.StopTimer).Methods(http.MethodPost)
	r.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/ws", h.ServeWS).Methods(http.MethodGet)

	return r
}
