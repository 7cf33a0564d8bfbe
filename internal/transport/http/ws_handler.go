package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/wirechat-server/internal/auth"
	"github.com/vovakirdan/wirechat-server/internal/callengine"
	"github.com/vovakirdan/wirechat-server/internal/core"
	"github.com/vovakirdan/wirechat-server/internal/proto"
	"github.com/vovakirdan/wirechat-server/internal/utils"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client, along
// with (for authenticated users) a per-connection callengine.Engine.
type WSHandler struct {
	hub      core.Hub
	auth     *auth.Service
	engines  *core.EngineFactory
	registry *core.CallRegistry
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. engines may be nil, which
// disables calling for every connection (chat still works). registry may
// also be nil, in which case live call state never reaches the REST
// call-listing endpoints.
func NewWSHandler(hub core.Hub, authService *auth.Service, engines *core.EngineFactory, registry *core.CallRegistry, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, auth: authService, engines: engines, registry: registry, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	userID, username := h.identify(r)
	autoAccept := userID != 0 && r.URL.Query().Get("auto_accept") == "true"
	client := core.NewClient(utils.NewID(), username, userID, autoAccept)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	var engine *callengine.Engine
	if userID != 0 && h.engines != nil {
		engine = h.engines.New(client)
	}
	if engine != nil {
		wireEngineEvents(engine, client, h.registry)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, engine)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	if engine != nil {
		_ = engine.Destroy(context.Background())
	}

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// identify resolves the connecting user from a bearer token passed either as
// an Authorization header or a ?token= query parameter (browsers can't set
// headers on the WebSocket upgrade request). Returns (0, "") for guests that
// never authenticated — chat-only, no call engine.
func (h *WSHandler) identify(r *stdhttp.Request) (userID int64, username string) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if authHeader := r.Header.Get("Authorization"); len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	if token == "" || h.auth == nil {
		return 0, ""
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		h.log.Debug().Err(err).Msg("ws: invalid token, connecting as anonymous")
		return 0, ""
	}
	return claims.UserID, claims.Username
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, engine *callengine.Engine) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("read ws inbound")
			return err
		}

		if inbound.Type == proto.InboundTypeCall {
			h.handleCallInbound(ctx, conn, client, engine, inbound)
			continue
		}

		cmd, protoErr, err := inboundToCommand(client, inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  "error",
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
			continue
		}
		if cmd != nil {
			client.Commands <- cmd
		}
	}
}

// handleCallInbound dispatches a "call" envelope to the connection's engine.
// If no engine is attached (anonymous connection, or calling disabled) it
// reports an error back to the client instead of silently dropping the call.
func (h *WSHandler) handleCallInbound(ctx context.Context, conn *websocket.Conn, client *core.Client, engine *callengine.Engine, inbound proto.Inbound) {
	if engine == nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  "error",
			Error: &proto.Error{Code: core.ErrCodeCallsDisabled, Msg: "calls are not available on this connection"},
		})
		return
	}

	var action proto.CallAction
	if err := json.Unmarshal(inbound.Data, &action); err != nil {
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  "error",
			Error: &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid call payload"},
		})
		return
	}

	var err error
	switch action.Action {
	case "invite":
		if action.RoomID != "" {
			err = engine.PrepareForCall(ctx, callengine.PrepareConfig{RoomID: action.RoomID})
		}
		if err == nil {
			err = engine.Call(ctx, action.RemoteUserID, parseCallType(action.CallType))
		}
	case "accept":
		err = engine.Accept(ctx, action.RemoteUserID)
	case "reject":
		err = engine.Reject(ctx, action.RemoteUserID, action.Reason)
	case "cancel":
		err = engine.CancelCall(ctx)
	case "hangup":
		err = engine.Hangup(ctx, action.RemoteUserID)
	default:
		err = errors.New("unknown call action: " + action.Action)
	}
	if err != nil {
		h.log.Debug().Err(err).Str("client_id", client.ID).Str("action", action.Action).Msg("call action rejected")
		_ = wsjson.Write(ctx, conn, proto.Outbound{
			Type:  "error",
			Error: &proto.Error{Code: core.ErrCodeCallError, Msg: err.Error()},
		})
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
