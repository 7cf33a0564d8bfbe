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

func startTestServer(t *testing.T) (*httptest.Server, context.CancelFunc) {
	t.Helper()

	st := createTestStore(t)
	t.Cleanup(func() { st.Close() })

	authService := createTestAuthService(t, st, "test-secret")
	hub := newTestHub(st)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	cfg := config.Default()
	friendsSvc := friends.New(st)
	callsSvc := calls.New(st, nil, friendsSvc, nil)

	server := NewServer(hub, authService, st, &cfg, newDisabledLogger(), callsSvc, nil, nil)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, cancel
}

func TestHealthEndpoint(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestWebSocketJoinAndMessage(t *testing.T) {
	ts, cancel := startTestServer(t)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"

	ctx, closeCtx := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCtx()

	connA, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial A: %v", err)
	}
	defer connA.Close(websocket.StatusNormalClosure, "done")

	connB, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial B: %v", err)
	}
	defer connB.Close(websocket.StatusNormalClosure, "done")

	sendJoin := func(conn *websocket.Conn, room string) {
		payload, _ := json.Marshal(proto.JoinData{Room: room})
		_ = wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeJoin, Data: payload})
	}

	sendMsg := func(conn *websocket.Conn, room, text string) {
		payload, _ := json.Marshal(proto.MsgData{Room: room, Text: text})
		_ = wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeMsg, Data: payload})
	}

	sendJoin(connA, "general")
	sendJoin(connB, "general")

	// Drain connB's own join event before the chat message arrives.
	var joinEvent proto.Outbound
	if err := wsjson.Read(ctx, connB, &joinEvent); err != nil {
		t.Fatalf("read join event: %v", err)
	}

	sendMsg(connA, "general", "hi there")

	var outbound proto.Outbound
	if err := wsjson.Read(ctx, connB, &outbound); err != nil {
		t.Fatalf("read outbound: %v", err)
	}

	if outbound.Type != "event" {
		t.Fatalf("unexpected outbound type: %s", outbound.Type)
	}

	raw, err := json.Marshal(outbound.Data)
	if err != nil {
		t.Fatalf("remarshal event data: %v", err)
	}
	var event proto.EventMessage
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}

	if event.Text != "hi there" || event.Room != "general" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}
