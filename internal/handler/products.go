package handler

import (
	"errors"
	"net/http"

	"posadmin/internal/apierror"
	"posadmin/internal/dto"
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	productsIndex  = "/products"
	maxImageUpload = 5 << 20
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// Index godoc
// @Summary List products
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name or SKU substring, or exact barcode"
// @Param category_id query string false "Category filter"
// @Param page query int false "Page"
// @Success 200 {object} dto.Page
// @Router /products [get]
func (h *ProductsHandler) Index(c *gin.Context) {
	var filter dto.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	props, err := h.svc.Index(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "products/Index", props)
}

func (h *ProductsHandler) Create(c *gin.Context) {
	props, err := h.svc.CreateForm(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "products/Create", props)
}

func (h *ProductsHandler) Store(c *gin.Context) {
	var req dto.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Create(c.Request.Context(), req); err != nil {
		respondError(c, err, productsIndex)
		return
	}
	c.JSON(http.StatusCreated, dto.Success("Product created successfully", productsIndex))
}

func (h *ProductsHandler) Edit(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	props, err := h.svc.EditForm(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	render(c, "products/Edit", props)
}

func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if _, err := h.svc.Update(c.Request.Context(), id, req); err != nil {
		respondError(c, err, productsIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Product updated successfully.", productsIndex))
}

func (h *ProductsHandler) Destroy(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, productsIndex)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Product deleted successfully.", productsIndex))
}

// AdjustStock godoc
// @Summary Add or remove units; stock never goes below zero
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param body body dto.StockAdjustmentRequest true "Signed quantity"
// @Success 200 {object} dto.ProductResponse
// @Failure 409 {object} dto.Flash
// @Router /products/{id}/stock [patch]
func (h *ProductsHandler) AdjustStock(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.StockAdjustmentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AdjustStock(c.Request.Context(), id, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Export streams the catalog as an xlsx workbook.
func (h *ProductsHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		_ = c.Error(err)
	}
}

// PriceLookup godoc
// @Summary Price check by barcode (no authentication)
// @Tags price
// @Produce json
// @Param barcode path string true "Barcode"
// @Success 200 {object} dto.PriceLookupResponse
// @Failure 404 {object} apierror.APIError
// @Router /price/{barcode} [get]
func (h *ProductsHandler) PriceLookup(c *gin.Context) {
	resp, err := h.svc.PriceLookup(c.Request.Context(), c.Param("barcode"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, apierror.New("Product not found"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StoreImage accepts a multipart "image" file.
func (h *ProductsHandler) StoreImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{
			"image": "The image field is required.",
		}))
		return
	}
	if fh.Size > maxImageUpload {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{
			"image": "The image may not be greater than 5120 kilobytes.",
		}))
		return
	}
	file, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		return
	}
	defer file.Close()

	img, err := h.svc.AddImage(c.Request.Context(), id, service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        file,
	})
	if errors.Is(err, service.ErrStorageDisabled) {
		c.JSON(http.StatusServiceUnavailable, apierror.New("Image storage is not configured"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, img)
}

func (h *ProductsHandler) PrimaryImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image")
	if !ok {
		return
	}
	if err := h.svc.MakePrimaryImage(c.Request.Context(), id, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Primary image updated.", ""))
}

func (h *ProductsHandler) DestroyImage(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	imageID, ok := parseID(c, "image")
	if !ok {
		return
	}
	if err := h.svc.DeleteImage(c.Request.Context(), id, imageID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Success("Image deleted.", ""))
}
