package handler

import (
	"net/http"

	"posadmin/internal/apierror"
	"posadmin/internal/dto"
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
)

const usersIndex = "/users"

type UsersHandler struct{ svc service.UserService }

func NewUsersHandler(svc service.UserService) *UsersHandler { return &UsersHandler{svc: svc} }

// Index godoc
// @Summary List users visible to the caller
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or email"
// @Param role query string false "Role filter"
// @Param page query int false "Page"
// @Success 200 {object} dto.Page
// @Router /users [get]
func (h *UsersHandler) Index(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var filter dto.UserFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	props, err := h.svc.Index(c.Request.Context(), a, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "users/Index", props)
}

func (h *UsersHandler) Create(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	props, err := h.svc.CreateForm(c.Request.Context(), a)
	if err != nil {
		respondError(c, err, usersIndex)
		return
	}
	render(c, "users/Create", props)
}

// Store godoc
// @Summary Create a user with the profile of its role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateUserRequest true "User"
// @Success 201 {object} dto.Flash
// @Failure 422 {object} apierror.ValidationError
// @Router /users [post]
func (h *UsersHandler) Store(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req dto.CreateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Create(c.Request.Context(), a, req); err != nil {
		respondError(c, err, usersIndex)
		return
	}
	c.JSON(http.StatusCreated, dto.Success("User created successfully", usersIndex))
}

func (h *UsersHandler) Show(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.svc.Show(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err, usersIndex)
		return
	}
	render(c, "users/Show", gin.H{"user": user})
}

func (h *UsersHandler) Edit(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	props, err := h.svc.EditForm(c.Request.Context(), a, id)
	if err != nil {
		respondError(c, err, usersIndex)
		return
	}
	render(c, "users/Edit", props)
}

func (h *UsersHandler) Update(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Update(c.Request.Context(), a, id, req); err != nil {
		respondError(c, err, usersIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("User updated successfully", usersIndex))
}

func (h *UsersHandler) Destroy(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), a, id); err != nil {
		respondError(c, err, usersIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("User deleted successfully", usersIndex))
}
