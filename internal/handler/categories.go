package handler

import (
	"net/http"

	"posadmin/internal/apierror"
	"posadmin/internal/dto"
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
)

const categoriesIndex = "/product-categories"

type CategoriesHandler struct{ svc service.CategoryService }

func NewCategoriesHandler(svc service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{svc: svc}
}

// Index godoc
// @Summary Browse the category tree, or search categories by name
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name substring; switches to search mode"
// @Param page query int false "Page (search mode)"
// @Success 200 {object} dto.Page
// @Router /product-categories [get]
func (h *CategoriesHandler) Index(c *gin.Context) {
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
	render(c, "products/categories/Index", props)
}

func (h *CategoriesHandler) Create(c *gin.Context) {
	props, err := h.svc.CreateForm(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "products/categories/Create", props)
}

func (h *CategoriesHandler) Store(c *gin.Context) {
	var req dto.CategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Create(c.Request.Context(), req); err != nil {
		respondError(c, err, categoriesIndex)
		return
	}
	c.JSON(http.StatusCreated, dto.Success("Category created successfully.", categoriesIndex))
}

func (h *CategoriesHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	props, err := h.svc.EditForm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "products/categories/Edit", props)
}

func (h *CategoriesHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Update(c.Request.Context(), id, req); err != nil {
		respondError(c, err, categoriesIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Category updated successfully.", categoriesIndex))
}

func (h *CategoriesHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, categoriesIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Category deleted successfully.", categoriesIndex))
}
