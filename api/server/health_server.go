package server

import (
	"log/slog"
	"mailbox/contract"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/process"
)

type HealthServer struct {
	store contract.IMessageStore
	proc  *process.Process
	log   *slog.Logger
}

func NewHealthServer(store contract.IMessageStore, log *slog.Logger) *HealthServer {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("Process stats unavailable", "error", err)
	}
	return &HealthServer{store: store, proc: p, log: log}
}

type healthResponse struct {
	Status   string `json:"status"`
	Pending  int    `json:"pending"`
	RSSBytes uint64 `json:"rss_bytes"`
}

// Health handles GET /health. A store that cannot be counted reports degraded with 503.
func (s *HealthServer) Health(c *gin.Context) {
	response := healthResponse{Status: "ok"}
	if s.proc != nil {
		if memInfo, err := s.proc.MemoryInfo(); err == nil {
			response.RSSBytes = memInfo.RSS
		}
	}

	pending, err := s.store.Count(c.Request.Context())
	if err != nil {
		s.log.Error("Health check could not reach the store", "error", err)
		response.Status = "degraded"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	response.Pending = pending
	c.JSON(http.StatusOK, response)
}
