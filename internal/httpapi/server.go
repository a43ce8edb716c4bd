package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/minervabot/minerva/internal/auth"
	"github.com/minervabot/minerva/internal/config"
	"github.com/minervabot/minerva/internal/dialogue"
	"github.com/minervabot/minerva/internal/observability"
	"github.com/minervabot/minerva/internal/protocol"
)

// Responder turns one inbound user message into user-facing reply text.
type Responder interface {
	HandleMessage(ctx context.Context, userID, text string) string
}

type Server struct {
	cfg       config.Config
	gate      *auth.Gate
	responder Responder
	contexts  dialogue.ContextStore
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, gate *auth.Gate, responder Responder, contexts dialogue.ContextStore, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		gate:      gate,
		responder: responder,
		contexts:  contexts,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so another site cannot drive a user's chat.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/auth/confirm", s.handleAuthConfirm)
	r.Get("/v1/auth/state/{userID}", s.handleAuthState)
	r.Post("/v1/auth/revoke/{userID}", s.handleAuthRevoke)
	r.Get("/v1/context/{userID}", s.handleContextWindow)
	r.Get("/v1/chat/ws", s.handleChatWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

type authConfirmRequest struct {
	UserID    string `json:"user_id"`
	Token     string `json:"token"`
	Email     string `json:"email"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type authStateResponse struct {
	UserID    string     `json:"user_id"`
	State     auth.State `json:"state"`
	Email     string     `json:"email,omitempty"`
	ExpiresAt time.Time  `json:"expires_at,omitempty"`
}

// handleAuthConfirm is the identity-service callback. The callback is
// authoritative: the session becomes authenticated regardless of its prior
// state.
func (s *Server) handleAuthConfirm(w http.ResponseWriter, r *http.Request) {
	var req authConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Token) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id and token are required")
		return
	}

	var expiry time.Time
	if strings.TrimSpace(req.ExpiresAt) != "" {
		parsed, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_expiry", "expires_at must be RFC 3339")
			return
		}
		expiry = parsed
	}

	sess, err := s.gate.Confirm(r.Context(), req.UserID, req.Token, req.Email, expiry)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "confirm_failed", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.AuthEvents.WithLabelValues("confirmed").Inc()
	}
	respondJSON(w, http.StatusOK, authStateResponse{
		UserID:    sess.UserID,
		State:     sess.State,
		Email:     sess.Email,
		ExpiresAt: sess.Expiry,
	})
}

func (s *Server) handleAuthState(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if strings.TrimSpace(userID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}

	state, err := s.gate.Check(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "state_failed", err.Error())
		return
	}
	sess, err := s.gate.Session(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "state_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, authStateResponse{
		UserID:    userID,
		State:     state,
		Email:     sess.Email,
		ExpiresAt: sess.Expiry,
	})
}

func (s *Server) handleAuthRevoke(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if strings.TrimSpace(userID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}

	if err := s.gate.Revoke(r.Context(), userID); err != nil {
		if errors.Is(err, auth.ErrAuthRequired) {
			respondError(w, http.StatusConflict, "not_authenticated", "session is not authenticated")
			return
		}
		respondError(w, http.StatusInternalServerError, "revoke_failed", err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.AuthEvents.WithLabelValues("revoked").Inc()
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "state": auth.StateExpired})
}

func (s *Server) handleContextWindow(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if strings.TrimSpace(userID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "missing user id")
		return
	}

	turns, err := s.contexts.Window(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "context_failed", err.Error())
		return
	}
	if turns == nil {
		turns = []dialogue.Turn{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"user_id": userID, "turns": turns})
}

// handleChatWS runs a text chat connection. Each chat_message is handled on
// its own goroutine so a slow fan-out does not block pings; the orchestrator's
// per-user lock keeps same-user messages ordered.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	if s.responder == nil {
		respondError(w, http.StatusNotImplemented, "unavailable", "responder not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	send := func(msg any) {
		select {
		case outbound <- msg:
		case <-ctx.Done():
		}
	}

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	var handlers sync.WaitGroup
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				Code:      "invalid_client_message",
				Retryable: false,
				Detail:    err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.ChatMessage:
			send(protocol.TypingEvent{Type: protocol.TypeTypingEvent, UserID: msg.UserID})
			handlers.Add(1)
			go func(msg protocol.ChatMessage) {
				defer handlers.Done()
				reply := s.responder.HandleMessage(ctx, msg.UserID, msg.Text)
				send(protocol.AssistantReply{
					Type:      protocol.TypeAssistantReply,
					UserID:    msg.UserID,
					MessageID: uuid.NewString(),
					Text:      reply,
					TSMs:      time.Now().UnixMilli(),
				})
			}(msg)
		case protocol.ClientControl:
			switch msg.Action {
			case "ping":
				send(protocol.SystemEvent{Type: protocol.TypeSystemEvent, UserID: msg.UserID, Code: "pong"})
			case "close":
				cancel()
			default:
				send(protocol.ErrorEvent{
					Type:   protocol.TypeErrorEvent,
					UserID: msg.UserID,
					Code:   "unknown_action",
					Detail: msg.Action,
				})
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	cancel()
	handlers.Wait()
	close(outbound)
	<-writerDone
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
