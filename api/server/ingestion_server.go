package server

import (
	"log/slog"
	"mailbox/services"
	"net/http"

	"github.com/gin-gonic/gin"
)

type IngestionServer struct {
	svc services.IIngestionService
	log *slog.Logger
}

func NewIngestionServer(svc services.IIngestionService, log *slog.Logger) *IngestionServer {
	return &IngestionServer{svc: svc, log: log}
}

type submitRequest struct {
	Message           any    `json:"message"`
	VerificationToken string `json:"verificationToken"`
}

type submitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ID       string `json:"id,omitempty"`
	Notified *bool  `json:"notified,omitempty"`
}

// Submit handles POST /api/submit.
func (s *IngestionServer) Submit(c *gin.Context) {
	var request submitRequest
	if err := decodeJSON(c, &request); err != nil {
		writeError(c, s.log, err)
		return
	}

	result, err := s.svc.Submit(c.Request.Context(), services.SubmitCommand{
		Message:           request.Message,
		VerificationToken: request.VerificationToken,
		OriginID:          originID(c),
	})
	if err != nil {
		writeError(c, s.log, err)
		return
	}

	response := submitResponse{Success: true, Message: "message sent", ID: result.ID}
	switch {
	case result.Notified:
		response.Notified = &result.Notified
	case result.NotifyFailed:
		notified := false
		response.Notified = &notified
		response.Message = "message stored, notification could not be sent"
	}
	c.JSON(http.StatusOK, response)
}
