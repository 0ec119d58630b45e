package delivery

import (
	"net/http"

	"nexcrm-backend/internal/stats/usecase"

	"github.com/gin-gonic/gin"
)

type StatsHandler struct {
	statsUsecase usecase.StatsUsecase
}

func NewStatsHandler(statsUsecase usecase.StatsUsecase) *StatsHandler {
	return &StatsHandler{
		statsUsecase: statsUsecase,
	}
}

// Dashboard handles GET /api/stats/dashboard
func (h *StatsHandler) Dashboard(c *gin.Context) {
	userID := c.GetString("userID")

	stats, err := h.statsUsecase.GetDashboardStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
