package notify_api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/websocket"

	"eventsphere/internal/auth"
	"eventsphere/internal/logger"
	"eventsphere/internal/models"
	"eventsphere/internal/notify"
	"eventsphere/internal/utils"
)

const heartbeatInterval = 25 * time.Second

// Frame is what clients receive on both transports.
type Frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClientFrame is what WebSocket clients send.
type ClientFrame struct {
	Type   string `json:"type"`
	ExpoID string `json:"expoId"`
}

type Handler struct {
	Hub    *notify.Hub
	Tokens *auth.Tokens
	Logger *logger.Logger
}

func NewHandler(hub *notify.Hub, tokens *auth.Tokens, log *logger.Logger) *Handler {
	return &Handler{Hub: hub, Tokens: tokens, Logger: log}
}

// RegisterRoutes mounts /stream on the API router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(auth.OptionalMiddleware(h.Tokens)).Get("/stream", h.Stream)
}

// ---------------- SSE ----------------

// Stream serves /stream?expo=<id>. Authenticated callers also receive their
// own user channel.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	channels := make([]string, 0, 2)
	if expoID := strings.TrimSpace(r.URL.Query().Get("expo")); expoID != "" {
		channels = append(channels, notify.ExpoChannel(expoID))
	}
	if actor := auth.ActorFrom(r.Context()); actor != nil {
		channels = append(channels, notify.UserChannel(actor.ID))
	}
	if len(channels) == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("An expo or a login is required", "bad_request"))
		return
	}

	// Streams outlive the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	setupSSEHeaders(w)
	ctx := r.Context()
	sub := h.Hub.Subscribe(ctx, channels...)

	connected, _ := json.Marshal(map[string]interface{}{"status": "connected", "channels": channels})
	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", connected)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to %s", strings.Join(channels, ", ")))

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			data, err := json.Marshal(Frame{Type: msg.Event, Channel: msg.Channel, Payload: msg.Payload})
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialise %s: %v", msg.Event, err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from %s", strings.Join(channels, ", ")))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

// ---------------- WEBSOCKET ----------------

type actorKey struct{}

// WebSocket serves /ws. A token may come from ?token= or the Authorization
// header; an invalid one is refused before the upgrade.
func (h *Handler) WebSocket() http.Handler {
	ws := websocket.Server{
		Handler: h.serveConn,
		// Origin is not checked; identity comes from the token.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("token"))
		if raw == "" {
			raw, _ = auth.ExtractTokenFromRequest(r)
		}
		if raw != "" {
			actor, err := h.Tokens.Verify(raw)
			if err != nil {
				h.Logger.LogSecurity("ws_rejected", fmt.Sprintf("remote=%s: %v", r.RemoteAddr, err))
				utils.WriteError(w, err)
				return
			}
			r = r.WithContext(context.WithValue(r.Context(), actorKey{}, actor))
		}
		ws.ServeHTTP(w, r)
	})
}

func (h *Handler) serveConn(conn *websocket.Conn) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()

	sub := h.Hub.Subscribe(ctx)
	if actor, ok := ctx.Value(actorKey{}).(*models.Actor); ok {
		sub.Join(notify.UserChannel(actor.ID))
	}

	var writeMu sync.Mutex
	send := func(f Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return websocket.JSON.Send(conn, f)
	}

	go func() {
		for msg := range sub.C() {
			if err := send(Frame{Type: msg.Event, Channel: msg.Channel, Payload: msg.Payload}); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		var in ClientFrame
		if err := websocket.JSON.Receive(conn, &in); err != nil {
			h.Logger.Debug("WS", fmt.Sprintf("Connection closed: %v", err))
			return
		}

		expoID := strings.TrimSpace(in.ExpoID)
		switch {
		case expoID == "" && (in.Type == "join-expo" || in.Type == "leave-expo"):
			_ = send(errorFrame("expoId is required"))
		case in.Type == "join-expo":
			sub.Join(notify.ExpoChannel(expoID))
			_ = send(Frame{Type: "joined", Channel: notify.ExpoChannel(expoID)})
		case in.Type == "leave-expo":
			sub.Leave(notify.ExpoChannel(expoID))
			_ = send(Frame{Type: "left", Channel: notify.ExpoChannel(expoID)})
		default:
			_ = send(errorFrame(fmt.Sprintf("unsupported frame type %q", in.Type)))
		}
	}
}

func errorFrame(message string) Frame {
	payload, _ := json.Marshal(map[string]string{"message": message})
	return Frame{Type: "error", Payload: payload}
}
