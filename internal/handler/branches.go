package handler

import (
	"net/http"

	"posadmin/internal/apierror"
	"posadmin/internal/dto"
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
)

const branchesIndex = "/branches"

type BranchesHandler struct{ svc service.BranchService }

func NewBranchesHandler(svc service.BranchService) *BranchesHandler {
	return &BranchesHandler{svc: svc}
}

func (h *BranchesHandler) Index(c *gin.Context) {
	var filter dto.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	props, err := h.svc.Index(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "branches/Index", props)
}

func (h *BranchesHandler) Create(c *gin.Context) {
	render(c, "branches/Create", dto.BranchFormProps{})
}

// Store godoc
// @Summary Register a branch
// @Tags branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.BranchRequest true "Branch"
// @Success 201 {object} dto.Flash
// @Failure 422 {object} apierror.ValidationError
// @Router /branches [post]
func (h *BranchesHandler) Store(c *gin.Context) {
	var req dto.BranchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Create(c.Request.Context(), req); err != nil {
		respondError(c, err, branchesIndex)
		return
	}
	c.JSON(http.StatusCreated, dto.Success("Branch created successfully", branchesIndex))
}

func (h *BranchesHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	b, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "branches/Edit", dto.BranchFormProps{Branch: b})
}

func (h *BranchesHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.BranchRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Update(c.Request.Context(), id, req); err != nil {
		respondError(c, err, branchesIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Branch updated successfully", branchesIndex))
}

func (h *BranchesHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, branchesIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Branch deleted successfully", branchesIndex))
}
