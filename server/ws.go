package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"personakit/core"
	"personakit/protocol"
	"personakit/sessions"
)

// handleWebSocket upgrades the connection, registers it under the handshake
// identity and runs the read loop until disconnect. Each frame is routed
// synchronously, so a connection's events are processed one at a time while
// separate connections proceed concurrently.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid user_id", http.StatusBadRequest)
		return
	}
	id := core.Identity(userID)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	sessionID := uuid.NewString()
	wsc := sessions.NewWSConn(conn)
	s.registry.Register(id, wsc)
	log.Info().Int64("user_id", userID).Str("session_id", sessionID).Msg("realtime session opened")

	defer func() {
		s.registry.Unregister(id, wsc)
		_ = wsc.Close()
		log.Info().Int64("user_id", userID).Str("session_id", sessionID).Msg("realtime session closed")
	}()

	// The request context dies with the hijacked handler; routing work that
	// outlives a disconnect must not be cancelled by it.
	ctx := context.Background()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.DecodeInbound(data)
		if err != nil {
			log.Warn().Err(err).Int64("user_id", userID).Msg("rejecting malformed frame")
			s.registry.Deliver(id, protocol.NewError(id, "invalid message"))
			continue
		}
		// The handshake identity is authoritative; the frame's own user_id
		// is ignored.
		msg.UserID = id
		msg.SessionID = sessionID
		s.router.HandleInbound(ctx, msg)
	}
}
