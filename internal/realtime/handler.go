package realtime

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/taskhub/internal/api/shared"
)

// Handler upgrades HTTP requests to websocket connections and places them in
// the connection registry. Authentication happens before the upgrade: a
// request without a valid token is rejected with 401 and never touches the
// registry.
type Handler struct {
	registry *Registry
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a websocket handshake handler backed by the given
// registry. allowedOrigins is the CORS-style allow-list applied to the
// Origin header; "*" allows any origin and an empty list allows only
// same-origin requests.
func NewHandler(registry *Registry, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With("component", "realtime_handler"),
	}
}

// ServeHTTP implements http.Handler. The client supplies its bearer token
// once, at the handshake: either as an Authorization header or as a "token"
// query parameter (browsers cannot set headers on websocket dials).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	userID, err := h.registry.Authenticate(r.Context(), token)
	if err != nil {
		h.logger.Debug("websocket handshake rejected",
			"error", err,
			"remote_addr", r.RemoteAddr)
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid or missing token")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.Debug("websocket upgrade failed", "error", err, "user_id", userID)
		return
	}

	conn := newWSConn(ws, h.logger)
	h.registry.Register(conn, userID)

	h.logger.Info("websocket connection established",
		"connection_id", conn.ID(),
		"user_id", userID)

	go conn.writePump()
	go func() {
		// readPump blocks until the transport dies; room membership is
		// dropped the moment it does.
		conn.readPump()
		h.registry.Unregister(conn)
		h.logger.Info("websocket connection closed",
			"connection_id", conn.ID(),
			"user_id", userID)
	}()
}

// bearerToken extracts the handshake token from the Authorization header or,
// failing that, the "token" query parameter.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return r.URL.Query().Get("token")
}

// originChecker builds the Upgrader's origin check from the allow-list.
func originChecker(allowedOrigins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	allowAll := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // same-origin or non-browser client
		}
		if allowAll {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
