package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-server/internal/config"
	"github.com/vovakirdan/wirechat-server/internal/proto"
	"github.com/vovakirdan/wirechat-server/internal/service/calls"
	"github.com/vovakirdan/wirechat-server/internal/service/friends"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func TestWebSocketUnknownMessageType(t *testing.T) {
	st := createTestStore(t)
	defer st.Close()

	authService := createTestAuthService(t, st, "test-secret")
	hub := newTestHub(st)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	cfg := config.Default()
	friendsSvc := friends.New(st)
	callsSvc := calls.New(st, nil, friendsSvc, nil)

	server := NewServer(hub, authService, st, &cfg, newDisabledLogger(), callsSvc, nil, nil)
	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	cctx, closeCtx := context.WithTimeout(context.Background(), 3*time.Second)
	defer closeCtx()

	conn, _, err := websocket.Dial(cctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	payload, _ := json.Marshal(struct{}{})
	if writeErr := wsjson.Write(cctx, conn, proto.Inbound{Type: "bogus", Data: payload}); writeErr != nil {
		t.Fatalf("send bogus message: %v", writeErr)
	}

	var outbound proto.Outbound
	if err := wsjson.Read(cctx, conn, &outbound); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	if outbound.Type != proto.OutboundTypeError || outbound.Error == nil || outbound.Error.Code != "invalid_message" {
		t.Fatalf("expected invalid_message error, got %+v", outbound)
	}
}
