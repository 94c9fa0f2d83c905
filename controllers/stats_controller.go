package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/pans/utils"
)

// StatsController exposes engagement counters.
type StatsController struct {
	pans *PanController
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(pans *PanController) *StatsController {
	return &StatsController{pans: pans}
}

// GetPanStats returns like and comment counts for a given pan id.
func (s *StatsController) GetPanStats(ctx *gin.Context) {
	pan, err := s.pans.svc.GetPan(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		s.pans.fail(ctx, "pan stats", err)
		return
	}

	utils.Success(ctx, gin.H{
		"pan_id":   pan.ID,
		"likes":    len(pan.Likes),
		"comments": len(pan.Comments),
	})
}
