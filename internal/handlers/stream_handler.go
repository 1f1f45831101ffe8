package handlers

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/urna-api/internal/logger"
	"github.com/gravadigital/urna-api/internal/middleware/identity"
	"github.com/gravadigital/urna-api/internal/notify"
	"github.com/gravadigital/urna-api/internal/response"
	"github.com/gravadigital/urna-api/internal/services"
)

const defaultPingInterval = 15 * time.Second

// StreamHandler pushes election change events over server-sent events. Clients
// that miss events re-sync from the results endpoint.
type StreamHandler struct {
	voting       *services.VotingService
	events       notify.Subscriber
	pingInterval time.Duration
	log          *log.Logger
}

func NewStreamHandler(svc *services.Services, events notify.Subscriber, pingInterval time.Duration) *StreamHandler {
	if pingInterval <= 0 {
		pingInterval = defaultPingInterval
	}
	return &StreamHandler{
		voting:       svc.Voting,
		events:       events,
		pingInterval: pingInterval,
		log:          logger.Handler("stream_handler"),
	}
}

type streamState struct {
	Status     string `json:"status"`
	TotalVotes int64  `json:"total_votes"`
}

// Stream handles GET /api/elections/:id/stream
func (h *StreamHandler) Stream(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sess := identity.FromContext(c)
	ctx := c.Request.Context()

	e, err := h.voting.GetElectionSummary(ctx, sess, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	events, cancel := h.events.Subscribe(id)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("state", streamState{Status: e.Status.String(), TotalVotes: e.TotalVotes})
	c.Writer.Flush()

	h.log.Debug("Stream opened", "request_id", c.GetString("request_id"), "election_id", id)
	defer h.log.Debug("Stream closed", "request_id", c.GetString("request_id"), "election_id", id)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.SSEvent(string(ev.Kind), ev)
			c.Writer.Flush()
		case <-ticker.C:
			// ping carries the current total so clients drift back after lost events
			current, err := h.voting.GetElectionSummary(ctx, sess, id)
			if err != nil {
				h.log.Warn("Stream refresh failed", "election_id", id, "error", err)
				return
			}
			c.SSEvent("ping", streamState{Status: current.Status.String(), TotalVotes: current.TotalVotes})
			c.Writer.Flush()
		}
	}
}
