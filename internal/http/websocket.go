package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsMessage is the frame pushed to pages.
type wsMessage struct {
	Type   string           `json:"type"`
	Screen dashboard.Screen `json:"screen"`
}

// wsHub streams every screen change to connected pages.
type wsHub struct {
	app      *dashboard.App
	logger   *zap.Logger
	upgrader websocket.Upgrader
	clients  sync.Map
}

func newWSHub(app *dashboard.App, logger *zap.Logger) *wsHub {
	return &wsHub{
		app:    app,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (hub *wsHub) count() int {
	n := 0
	hub.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (hub *wsHub) serve(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFrom(r.Context(), hub.logger)
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	hub.clients.Store(conn, struct{}{})
	observability.WebSocketClients.Inc()
	logger.Info("websocket client connected", zap.Int("clients", hub.count()))

	updates, cancel := hub.app.Subscribe()
	done := make(chan struct{})
	defer func() {
		cancel()
		<-done
		hub.clients.Delete(conn)
		observability.WebSocketClients.Dec()
		_ = conn.Close()
		logger.Info("websocket client disconnected", zap.Int("clients", hub.count()))
	}()

	go func() {
		defer close(done)
		hub.writeLoop(conn, updates)
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	// Pages send nothing; reading only surfaces close frames and pongs.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writeLoop sends screens until updates closes or a write fails.
func (hub *wsHub) writeLoop(conn *websocket.Conn, updates <-chan dashboard.Screen) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case s, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "screen", Screen: s}); err != nil {
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
