package handler

import (
	"errors"
	"net/http"

	"posadmin/internal/apierror"
	"posadmin/internal/dto"
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
)

type ShiftsHandler struct{ svc service.ShiftService }

func NewShiftsHandler(svc service.ShiftService) *ShiftsHandler { return &ShiftsHandler{svc: svc} }

// OpenForm godoc
// @Summary Open-shift screen; redirects to the POS when a shift is already open
// @Tags shifts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.Page
// @Success 303 {object} dto.Flash
// @Router /shifts/open [get]
func (h *ShiftsHandler) OpenForm(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	props, to, err := h.svc.OpenForm(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if to != "" {
		redirectTo(c, to)
		return
	}
	render(c, "shifts/Open", props)
}

// Store godoc
// @Summary Open a shift with the counted opening cash
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenShiftRequest true "Opening cash"
// @Success 201 {object} dto.Flash
// @Failure 422 {object} apierror.ValidationError
// @Router /shifts [post]
func (h *ShiftsHandler) Store(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.OpenShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	flash, err := h.svc.Open(c.Request.Context(), a.ID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusCreated
	if flash.Message == "" {
		// already open; nothing was written
		status = http.StatusOK
	}
	c.JSON(status, flash)
}

func (h *ShiftsHandler) CloseForm(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	props, to, err := h.svc.CloseForm(c.Request.Context(), a.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if to != "" {
		redirectTo(c, to)
		return
	}
	render(c, "shifts/Close", props)
}

// Update godoc
// @Summary Close the caller's open shift
// @Tags shifts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CloseShiftRequest true "Closing cash and notes"
// @Success 200 {object} dto.Flash
// @Failure 409 {object} dto.Flash
// @Failure 422 {object} apierror.ValidationError
// @Router /shifts [put]
func (h *ShiftsHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CloseShiftRequest
	if !bindAndValidate(c, &req) {
		return
	}
	flash, err := h.svc.Close(c.Request.Context(), a.ID, req)
	if errors.Is(err, service.ErrNoOpenShift) {
		c.JSON(http.StatusConflict, dto.Failure("No open shift found.", service.RedirectOpenShift))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, flash)
}

func (h *ShiftsHandler) Index(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter dto.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	props, err := h.svc.History(c.Request.Context(), a.ID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "shifts/Index", props)
}

// Report returns the PDF summary of one shift.
func (h *ShiftsHandler) Report(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pdf, filename, err := h.svc.Report(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=\""+filename+"\"")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
