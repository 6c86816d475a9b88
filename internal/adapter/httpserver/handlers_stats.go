package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

func (s *Server) handleStats(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.pool.Stats()); err != nil {
		return fmt.Errorf("failed to write stats response: %w", err)
	}
	return nil
}
