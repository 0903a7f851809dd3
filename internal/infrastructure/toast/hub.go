package toast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
)

// Config holds WebSocket tuning for the toast hub.
type Config struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingPeriod     time.Duration
	SendBufferSize int
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingPeriod:     54 * time.Second, // Must be less than PongTimeout
		SendBufferSize: 16,
	}
}

// Toast is one in-app notification pushed over a user's live connection.
type Toast struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Subject   string    `json:"subject"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub tracks live WebSocket sessions by user and delivers toasts to them. A
// user with several open sessions receives the toast on each; a user with no
// session gets a delivery error so the caller can audit the miss.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*session]bool
	upgrader websocket.Upgrader
	config   Config
	logger   *zap.Logger
}

type session struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
}

// NewHub creates a toast hub.
func NewHub(cfg Config, logger *zap.Logger) *Hub {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = DefaultConfig().SendBufferSize
	}
	return &Hub{
		sessions: make(map[uuid.UUID]map[*session]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		config: cfg,
		logger: logger,
	}
}

// ServeHTTP upgrades the request to a WebSocket session. The user is named by
// the user_id query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, h.config.SendBufferSize),
	}
	h.register(s)

	go h.writePump(s)
	go h.readPump(s)
}

// SendToast delivers a toast to every live session of the user.
func (h *Hub) SendToast(ctx context.Context, userID uuid.UUID, subject, details string) error {
	toast := Toast{
		ID:        uuid.New(),
		UserID:    userID,
		Subject:   subject,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(toast)
	if err != nil {
		return errors.NewInternalError("failed to marshal toast").WithCause(err)
	}

	h.mu.RLock()
	targets := make([]*session, 0, len(h.sessions[userID]))
	for s := range h.sessions[userID] {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return errors.NewExternalError("toast", "user has no live session").
			WithDetails(map[string]interface{}{"user_id": userID.String()})
	}

	for _, s := range targets {
		select {
		case s.send <- payload:
		default:
			// Slow consumer, drop the session rather than block delivery.
			h.logger.Warn("toast session send buffer full, closing",
				zap.String("user_id", userID.String()))
			h.closeSession(s)
		}
	}
	return nil
}

// SessionCount returns how many live sessions the user has.
func (h *Hub) SessionCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Close tears down every live session.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*session
	for _, set := range h.sessions {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		h.closeSession(s)
	}
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sessions[s.userID] == nil {
		h.sessions[s.userID] = make(map[*session]bool)
	}
	h.sessions[s.userID][s] = true
}

func (h *Hub) closeSession(s *session) {
	s.closeOnce.Do(func() {
		h.mu.Lock()
		if set := h.sessions[s.userID]; set != nil {
			delete(set, s)
			if len(set) == 0 {
				delete(h.sessions, s.userID)
			}
		}
		h.mu.Unlock()

		close(s.send)
		s.conn.Close()
	})
}

func (h *Hub) writePump(s *session) {
	ticker := time.NewTicker(h.config.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.closeSession(s)
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.closeSession(s)
				return
			}
		}
	}
}

// readPump drains inbound frames. Toast sessions are one-way, the read side
// exists only to process pongs and observe the close.
func (h *Hub) readPump(s *session) {
	defer h.closeSession(s)

	s.conn.SetReadLimit(1024)
	s.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(h.config.PongTimeout))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
