package handler

import (
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
)

// PagesHandler serves the landing screens that carry no resource of their own.
type PagesHandler struct{ shifts service.ShiftService }

func NewPagesHandler(shifts service.ShiftService) *PagesHandler {
	return &PagesHandler{shifts: shifts}
}

func (h *PagesHandler) Dashboard(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	open, err := h.shifts.HasOpenShift(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "Dashboard", gin.H{
		"role":       a.Role,
		"role_label": a.Role.Label(),
		"has_shift":  open,
	})
}

func (h *PagesHandler) POS(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	render(c, "pos/Index", gin.H{"role": a.Role})
}
