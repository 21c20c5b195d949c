package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tourgate/internal/chat"
	"tourgate/internal/fetch"
	"tourgate/internal/quota"
)

type chatRequest struct {
	Messages []chat.Turn `json:"messages"`
}

type chatResponse struct {
	Message    string           `json:"message"`
	ToolEvents []chat.ToolEvent `json:"toolEvents"`
	Model      string           `json:"model"`
	Remaining  *int             `json:"remaining"`
}

type quotaDeniedResponse struct {
	Error       string  `json:"error"`
	Limit       int     `json:"limit"`
	WindowHours int     `json:"windowHours"`
	Remaining   int     `json:"remaining"`
	ResetAt     *string `json:"resetAt"`
}

// handleChat is the chat transport: admit, run the tool loop, reply. Every
// failure path returns a JSON body with an error string, never a bare status.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: expected {messages: [{role, content}]}"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "messages must not be empty"})
		return
	}
	if strings.TrimSpace(req.Messages[len(req.Messages)-1].Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latest message has no content"})
		return
	}

	ctx := c.Request.Context()
	enforcer := s.quota.Get(ctx)
	decision := enforcer.Admit(ctx, quota.Fingerprint(c.Request))
	if !decision.Allowed {
		// resetAt stays null when the window has no recorded requests to
		// derive a reset instant from.
		var resetAt *string
		if decision.ResetAt != nil {
			formatted := decision.ResetAt.UTC().Format(time.RFC3339)
			resetAt = &formatted
		}
		c.JSON(http.StatusTooManyRequests, quotaDeniedResponse{
			Error:       "daily message limit reached, try again later",
			Limit:       enforcer.Limit(),
			WindowHours: int(enforcer.Window().Hours()),
			Remaining:   decision.Remaining,
			ResetAt:     resetAt,
		})
		return
	}

	ctx = fetch.WithRequestOrigin(ctx, fetch.OriginFromRequest(c.Request))

	outcome, err := s.chatEngine.Run(ctx, req.Messages)
	if err != nil {
		s.logger.Error("Chat request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the assistant is unavailable right now"})
		return
	}

	resp := chatResponse{
		Message:    outcome.Message,
		ToolEvents: outcome.ToolEvents,
		Model:      outcome.Model,
	}
	if !decision.Unmetered {
		remaining := decision.Remaining
		resp.Remaining = &remaining
	}
	c.JSON(http.StatusOK, resp)
}
