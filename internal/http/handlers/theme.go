package handlers

import (
	"net/http"

	"telegram_miniapp/internal/theme"

	"github.com/gin-gonic/gin"
)

type ThemeRequest struct {
	ThemeParams theme.Params    `json:"theme_params"`
	Viewport    *theme.Viewport `json:"viewport,omitempty"`
}

type ThemeResponse struct {
	Variables  map[string]string `json:"variables"`
	IsDark     bool              `json:"isDark"`
	Stylesheet string            `json:"stylesheet"`
}

// Theme converts host theme params into the CSS variables the client applies.
func (h *Handler) Theme(c *gin.Context) {
	var req ThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	vars := theme.ToCSSVariables(req.ThemeParams, req.Viewport)
	c.JSON(http.StatusOK, ThemeResponse{
		Variables:  vars,
		IsDark:     theme.IsDark(req.ThemeParams.WithDefaults()),
		Stylesheet: theme.Stylesheet(vars),
	})
}
