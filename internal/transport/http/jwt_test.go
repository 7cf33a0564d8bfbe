package http

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-server/internal/config"
	"github.com/vovakirdan/wirechat-server/internal/service/calls"
	"github.com/vovakirdan/wirechat-server/internal/service/friends"
	"github.com/vovakirdan/wirechat-server/internal/store"
	"nhooyr.io/websocket"
)

func startJWTTestServer(t *testing.T, st store.Store, jwtSecret string) (*httptest.Server, context.CancelFunc) {
	t.Helper()

	authService := createTestAuthService(t, st, jwtSecret)
	hub := newTestHub(st)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.JWTSecret = jwtSecret

	friendsSvc := friends.New(st)
	callsSvc := calls.New(st, nil, friendsSvc, nil)

	server := NewServer(hub, authService, st, &cfg, newDisabledLogger(), callsSvc, nil, nil)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, cancel
}

func TestWebSocketAuthenticatedConnection(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()

	ts, cancel := startJWTTestServer(t, st, "testsecret")
	defer cancel()

	authService := createTestAuthService(t, st, "testsecret")
	token, err := authService.Register(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=" + token
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
}

func TestWebSocketInvalidTokenConnectsAnonymously(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()

	ts, cancel := startJWTTestServer(t, st, "testsecret")
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws?token=invalid"
	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	// An invalid token degrades to an anonymous chat-only connection rather
	// than rejecting the upgrade outright.
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
}
