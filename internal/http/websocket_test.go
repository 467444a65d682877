package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readScreen(t *testing.T, conn *websocket.Conn) dashboard.Screen {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != "screen" {
		t.Fatalf("message type = %q, want screen", msg.Type)
	}
	return msg.Screen
}

// TestServeWS_PushesScreens verifies the initial screen is sent on connect
// and later changes follow.
func TestServeWS_PushesScreens(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, HealthConfig{}, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv)
	if s := readScreen(t, conn); s.Status != dashboard.StatusIdle {
		t.Errorf("initial Status = %q, want idle", s.Status)
	}

	if err := env.app.SearchCity(context.Background(), "London"); err != nil {
		t.Fatalf("SearchCity() error = %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := readScreen(t, conn)
		if s.Status == dashboard.StatusSuccess {
			if s.View == nil || s.View.Location != "London, GB" {
				t.Errorf("View = %+v", s.View)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("never received success screen")
		}
	}

	env.app.SetTime("9:41 AM")
	if s := readScreen(t, conn); s.Time != "9:41 AM" {
		t.Errorf("Time = %q, want 9:41 AM", s.Time)
	}
}

func TestServeWS_TracksClients(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, HealthConfig{}, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv)
	readScreen(t, conn)
	if n := env.handler.ws.count(); n != 1 {
		t.Errorf("count() = %d, want 1", n)
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for env.handler.ws.count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not removed after close")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServeWS_AppCloseEndsStream(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, HealthConfig{}, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv)
	readScreen(t, conn)
	env.app.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("ReadMessage() error = %v, want close going-away", err)
	}
}

func TestServeWS_RejectsPlainHTTP(t *testing.T) {
	env := newTestEnv(t, &mockWeatherClient{}, HealthConfig{}, nil)
	w := env.do("GET", "/api/ws", "")
	if w.Code != 400 {
		t.Errorf("status = %d, want 400 for non-upgrade request", w.Code)
	}
}
