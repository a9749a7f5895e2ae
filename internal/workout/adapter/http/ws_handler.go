package http

import (
	"context"
	"sync"
	"time"

	authhttp "gym-assistant/internal/auth/adapter/http"
	"gym-assistant/internal/shared/eventbus"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/workout/usecase"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localsOwner     = "live_owner"
	pingInterval    = 30 * time.Second
	writeTimeout    = 10 * time.Second
	readIdleLimit   = 2 * pingInterval
	messageError    = "error"
	messageClosed   = "closed"
	messageSnapshot = "snapshot"
)

// LiveMessage is a frame sent to live clients.
type LiveMessage struct {
	Type         string      `json:"type"`
	Collection   string      `json:"collection"`
	Subscription string      `json:"subscription"`
	Data         interface{} `json:"data,omitempty"`
	Error        string      `json:"error,omitempty"`
}

// LiveHandler streams collection changes over WebSocket.
type LiveHandler struct {
	service     *usecase.Service
	log         logger.Logger
	unsubscribe func()

	mu      sync.Mutex
	revokes map[string]map[string]chan struct{} // owner -> subscription -> revoke
}

// NewLiveHandler creates a new LiveHandler. When bus is not nil, a
// signed-out event closes every live subscription of that user.
func NewLiveHandler(service *usecase.Service, bus eventbus.Bus, log logger.Logger) *LiveHandler {
	h := &LiveHandler{
		service: service,
		log:     logger.OrNop(log).WithComponent("live"),
		revokes: make(map[string]map[string]chan struct{}),
	}
	if bus != nil {
		h.unsubscribe = bus.Subscribe(eventbus.EventTypeUserSignedOut, h.onSignedOut)
	}
	return h
}

// Close stops listening for sign-out events.
func (h *LiveHandler) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
}

func (h *LiveHandler) onSignedOut(_ context.Context, event eventbus.Event) error {
	uid, _ := event.Data().(string)
	if uid == "" {
		return nil
	}
	h.mu.Lock()
	subs := h.revokes[uid]
	delete(h.revokes, uid)
	h.mu.Unlock()

	for _, revoke := range subs {
		close(revoke)
	}
	if len(subs) > 0 {
		h.log.WithFields(map[string]interface{}{"user_id": uid}).Infof("closing %d live subscriptions after sign-out", len(subs))
	}
	return nil
}

// track registers a subscription so sign-out can revoke it. The returned
// func unregisters it.
func (h *LiveHandler) track(owner, subscriptionID string) (<-chan struct{}, func()) {
	revoke := make(chan struct{})
	h.mu.Lock()
	if h.revokes[owner] == nil {
		h.revokes[owner] = make(map[string]chan struct{})
	}
	h.revokes[owner][subscriptionID] = revoke
	h.mu.Unlock()

	return revoke, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.revokes[owner]; ok {
			delete(subs, subscriptionID)
			if len(subs) == 0 {
				delete(h.revokes, owner)
			}
		}
	}
}

// RegisterRoutes registers GET /ws/collections/:name. An "id" query
// parameter follows one document; otherwise the query parameters select
// a live list as for the collection API.
func (h *LiveHandler) RegisterRoutes(router fiber.Router) {
	router.Use("/ws/collections/:name", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		owner, ok := authhttp.GetUserID(c)
		if !ok || owner == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		if _, ok := h.service.Resource(c.Params("name")); !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown collection: " + c.Params("name"),
			})
		}
		c.Locals(localsOwner, owner)
		return c.Next()
	})
	router.Get("/ws/collections/:name", websocket.New(h.serve))
}

// liveConn serializes writes to one connection.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (l *liveConn) send(msg LiveMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return l.conn.WriteJSON(msg)
}

func (l *liveConn) ping() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (h *LiveHandler) serve(conn *websocket.Conn) {
	name := conn.Params("name")
	owner, _ := conn.Locals(localsOwner).(string)
	r, _ := h.service.Resource(name)
	subscriptionID := uuid.NewString()
	log := h.log.WithFields(map[string]interface{}{
		"collection":   name,
		"subscription": subscriptionID,
		"user_id":      owner,
	})
	live := &liveConn{conn: conn}
	revoked, untrack := h.track(owner, subscriptionID)
	defer untrack()

	push := func(data interface{}) {
		if err := live.send(LiveMessage{Type: messageSnapshot, Collection: name, Subscription: subscriptionID, Data: data}); err != nil {
			log.Debugf("push failed: %v", err)
		}
	}

	var (
		watch *usecase.Watch
		err   error
	)
	if id := conn.Query("id"); id != "" {
		watch, err = r.WatchDocument(owner, id, push)
	} else {
		opts, qerr := QueryFromParams(conn.Query)
		if qerr != nil {
			err = qerr
		} else {
			watch, err = r.Watch(owner, opts, push)
		}
	}
	if err != nil {
		_ = live.send(LiveMessage{Type: messageError, Collection: name, Subscription: subscriptionID, Error: publicMessage(err)})
		return
	}
	defer watch.Stop()
	log.Info("live subscription opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_ = conn.SetReadDeadline(time.Now().Add(readIdleLimit))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readIdleLimit))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("live connection error: %v", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			log.Info("live subscription closed by client")
			return
		case <-revoked:
			log.Info("live subscription closed by sign-out")
			_ = live.send(LiveMessage{Type: messageClosed, Collection: name, Subscription: subscriptionID})
			return
		case <-watch.Done():
			msg := LiveMessage{Type: messageClosed, Collection: name, Subscription: subscriptionID}
			if werr := watch.Err(); werr != nil {
				msg.Type, msg.Error = messageError, publicMessage(werr)
			}
			_ = live.send(msg)
			return
		case <-ticker.C:
			if err := live.ping(); err != nil {
				return
			}
		}
	}
}
