package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/G-m007/EmoStream/internal/domain"
	apperrors "github.com/G-m007/EmoStream/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const maxEmojiBodyBytes = 4096

type emojiRequest struct {
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	Timestamp *int64 `json:"timestamp"`
}

type emojiResponse struct {
	Message string `json:"message"`
}

// handleEmoji accepts one reaction over plain HTTP and routes it exactly like
// an "emoji" WebSocket frame. A failed durable forward still answers 200.
func (s *Server) handleEmoji(c echo.Context) error {
	var req emojiRequest
	body := http.MaxBytesReader(c.Response(), c.Request().Body, maxEmojiBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return apperrors.ValidationError("request body must be a JSON object")
	}

	if strings.TrimSpace(req.UserID) == "" {
		return apperrors.ValidationError("user_id is required").WithField("field", "user_id")
	}
	if strings.TrimSpace(req.Emoji) == "" {
		return apperrors.ValidationError("emoji is required").WithField("field", "emoji")
	}

	timestamp := s.clock.Now().UnixMilli()
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	err := s.router.Route(c.Request().Context(), domain.NewReaction(req.UserID, req.Emoji, timestamp))
	switch {
	case err == nil, errors.Is(err, domain.ErrForwardFailed):
	case errors.Is(err, domain.ErrInvalidEvent):
		return apperrors.ValidationError(err.Error())
	default:
		return apperrors.InternalError("Failed to send emoji", err)
	}

	if err := c.JSON(http.StatusOK, emojiResponse{Message: "Emoji sent successfully"}); err != nil {
		return fmt.Errorf("failed to write emoji response: %w", err)
	}
	return nil
}
