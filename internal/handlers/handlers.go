package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"timetrack/internal/models"
	"timetrack/internal/push"
	"timetrack/internal/store"
)

const tokenCookie = "token"

// UserStore resolves and mutates user credentials and session tokens.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	SetToken(ctx context.Context, userID, token string) error
	ClearToken(ctx context.Context, userID string) error
}

// TimerStore persists timer records.
type TimerStore interface {
	Create(ctx context.Context, ownerID, description string, start time.Time) (*models.Timer, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Timer, error)
	Stop(ctx context.Context, id, ownerID string, now time.Time) (*models.Timer, error)
}

type Handler struct {
	users    UserStore
	timers   TimerStore
	engine   *push.Engine
	upgrader websocket.Upgrader
}

func New(users UserStore, timers TimerStore, engine *push.Engine) *Handler {
	return &Handler{
		users:  users,
		timers: timers,
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Password hashing error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.users.Create(ctx, req.Username, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		}
		log.Printf("Signup failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.issueToken(ctx, w, user); err != nil {
		log.Printf("Token issue failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
	log.Printf("User registered: %s", user.Username)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// The refusal never says whether the username or the password was wrong.
	user, err := h.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}
		log.Printf("Login error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}

	if err := h.issueToken(ctx, w, user); err != nil {
		log.Printf("Token issue failed: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
	log.Printf("User logged in: %s", user.Username)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if user := h.currentUser(ctx, r); user != nil {
		if err := h.users.ClearToken(ctx, user.ID); err != nil {
			log.Printf("Logout failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Logged out"))
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := h.currentUser(ctx, r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) ListTimers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := h.currentUser(ctx, r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	timers, err := h.timers.ListByOwner(ctx, user.ID)
	if err != nil {
		log.Printf("ListTimers error: %v", err)
		http.Error(w, "Failed to fetch timers", http.StatusInternalServerError)
		return
	}
	if timers == nil {
		timers = []models.Timer{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timers)
}

func (h *Handler) CreateTimer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := h.currentUser(ctx, r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.CreateTimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Description) == "" {
		http.Error(w, "Description is required", http.StatusBadRequest)
		return
	}

	timer, err := h.timers.Create(ctx, user.ID, req.Description, time.Now())
	if err != nil {
		log.Printf("CreateTimer error: %v", err)
		http.Error(w, "Failed to create timer", http.StatusInternalServerError)
		return
	}

	// The event fires only once the insert is durable.
	h.engine.TimerCreated(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timer)
	log.Printf("Timer created: %s for user %s", timer.ID, user.ID)
}

func (h *Handler) StopTimer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := h.currentUser(ctx, r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	timer, err := h.timers.Stop(ctx, id, user.ID, time.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Unknown ids and other users' timers look the same.
			http.Error(w, "Timer not found", http.StatusNotFound)
			return
		}
		log.Printf("StopTimer error: %v", err)
		http.Error(w, "Failed to stop timer", http.StatusInternalServerError)
		return
	}

	h.engine.TimerStopped(r.Context())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timer)
	log.Printf("Timer stopped: %s", timer.ID)
}

// ServeWS authenticates the session token and only then upgrades; an
// unauthenticated peer is refused before it ever reaches the registry.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user := h.currentUser(ctx, r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	log.Printf("push connection opened: user %s", user.ID)
	h.engine.Connect(r.Context(), user.ID, conn)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.HealthStatus{
		Status:            "healthy",
		ActiveConnections: h.engine.ActiveConnections(),
		Timestamp:         time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) issueToken(ctx context.Context, w http.ResponseWriter, user *models.User) error {
	token := uuid.NewString()
	if err := h.users.SetToken(ctx, user.ID, token); err != nil {
		return err
	}
	user.Token = &token

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *Handler) currentUser(ctx context.Context, r *http.Request) *models.User {
	cookie, err := r.Cookie(tokenCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}

	user, err := h.users.GetByToken(ctx, cookie.Value)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("Token lookup error: %v", err)
		}
		return nil
	}
	return user
}
