package server

import (
	"log/slog"
	"mailbox/domain"
	"mailbox/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type DeliveryServer struct {
	svc services.IDeliveryService
	log *slog.Logger
}

func NewDeliveryServer(svc services.IDeliveryService, log *slog.Logger) *DeliveryServer {
	return &DeliveryServer{svc: svc, log: log}
}

type takeResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    *domain.Message `json:"data"`
	Relayed *bool           `json:"relayed,omitempty"`
}

// TakeNext handles GET /api/message. Every successful call removes the returned message.
func (s *DeliveryServer) TakeNext(c *gin.Context) {
	result, err := s.svc.TakeNext(c.Request.Context())
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	if result.Message == nil {
		c.JSON(http.StatusOK, takeResponse{Success: true, Message: "no message available", Data: nil})
		return
	}

	response := takeResponse{Success: true, Data: result.Message}
	if result.Relayed || result.RelayFailed {
		response.Relayed = &result.Relayed
	}
	c.JSON(http.StatusOK, response)
}
