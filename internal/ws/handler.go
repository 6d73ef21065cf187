package ws

import (
	"errors"
	"net/http"

	"telegram_miniapp/internal/logger"
	"telegram_miniapp/internal/theme"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades a page connection. An empty allowedOrigin accepts any
// origin.
func HandleWS(hub *Hub, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("devhost: upgrade failed", "error", err)
			return
		}
		go NewPage(conn, hub).Run()
	}
}

type stateResponse struct {
	Pages    int          `json:"pages"`
	Theme    theme.Params `json:"theme"`
	Viewport Viewport     `json:"viewport"`
}

func state(hub *Hub) stateResponse {
	return stateResponse{Pages: hub.Pages(), Theme: hub.Theme(), Viewport: hub.Viewport()}
}

// HandleState reports the simulated host state.
func HandleState(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, state(hub))
	}
}

// HandleTheme replaces the host palette from snake_case theme params.
func HandleTheme(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params theme.Params
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
		hub.SetTheme(params)
		c.JSON(http.StatusOK, state(hub))
	}
}

func HandleViewport(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var vp Viewport
		if err := c.ShouldBindJSON(&vp); err != nil || vp.Height <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "height must be positive"})
			return
		}
		hub.SetViewport(vp)
		c.JSON(http.StatusOK, state(hub))
	}
}

// HandlePress taps the button named by the :button path parameter.
func HandlePress(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.Press(c.Param("button")); err != nil {
			if errors.Is(err, ErrUnknownButton) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "button must be back or main"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
