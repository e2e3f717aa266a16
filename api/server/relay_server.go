package server

import (
	"log/slog"
	"mailbox/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type RelayServer struct {
	svc services.IDirectRelayService
	log *slog.Logger
}

func NewRelayServer(svc services.IDirectRelayService, log *slog.Logger) *RelayServer {
	return &RelayServer{svc: svc, log: log}
}

type relayRequest struct {
	Message any `json:"message"`
}

// Send handles POST /api/relay, forwarding the message without storing it.
func (s *RelayServer) Send(c *gin.Context) {
	var request relayRequest
	if err := decodeJSON(c, &request); err != nil {
		writeError(c, s.log, err)
		return
	}
	if err := s.svc.Send(c.Request.Context(), request.Message); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "message relayed"})
}
