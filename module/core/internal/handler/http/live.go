package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

type hub interface {
	Subscribe() *service.Subscription
	Unsubscribe(sub *service.Subscription)
}

type frame struct {
	Event string                   `json:"event"`
	Data  domain.BroadcastEnvelope `json:"data"`
}

// LiveHandler serves the dashboard channel.
type LiveHandler struct {
	hub      hub
	upgrader websocket.Upgrader
}

func NewLiveHandler(h hub) *LiveHandler {
	return &LiveHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *LiveHandler) Register(r *gin.RouterGroup) {
	r.GET("/ws/locations", h.StreamLocations)
}

// StreamLocations upgrades to a WebSocket and forwards every location:update
// envelope until either side goes away. A subscriber dropped by the hub for
// falling behind is closed with a policy-violation frame, and one ended by
// server shutdown with a going-away frame.
func (h *LiveHandler) StreamLocations(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	gone := make(chan struct{})
	go readLoop(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-sub.Envelopes():
			if !ok {
				writeClose(conn, sub.Err())
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame{Event: domain.EventLocationUpdate, Data: env}); err != nil {
				log.Debug().Err(err).Str("subscriber_id", sub.ID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func writeClose(conn *websocket.Conn, reason error) {
	var msg []byte
	switch {
	case errors.Is(reason, service.ErrSlowSubscriber):
		msg = websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow")
	case errors.Is(reason, service.ErrHubClosed):
		msg = websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	default:
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// readLoop discards client messages so control frames keep being processed.
func readLoop(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
