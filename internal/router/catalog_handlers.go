package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codstore.dev/storefront/pkg/apperr"
	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
)

// GetProducts lists products. Admins may filter on ?published; everyone
// else only ever sees published products.
func (h *Handler) GetProducts(c *gin.Context) {
	page, limit := pageParams(c)
	filter := models.ProductFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Sort:     models.ProductSort(c.Query("sort")),
		Page:     page,
		Limit:    limit,
	}
	if raw := c.Query("published"); raw != "" {
		published, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, apperr.Validation("published", "published must be true or false"))
			return
		}
		filter.Published = &published
	}

	result, err := h.Catalog.ListProducts(c.Request.Context(), filter, identity(c).IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, global.SuccessResponse(result))
}

func (h *Handler) GetProductBySlug(c *gin.Context) {
	product, err := h.Catalog.GetProduct(c.Request.Context(), c.Param("slug"), identity(c).IsAdmin())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(product.View()))
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.Catalog.CreateProduct(c.Request.Context(), &req, identity(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(product.View()))
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	var req models.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.Catalog.UpdateProduct(c.Request.Context(), c.Param("slug"), &req, identity(c).Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(product.View()))
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	if err := h.Catalog.DeleteProduct(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(nil))
}

func (h *Handler) GetCategories(c *gin.Context) {
	categories, err := h.Catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(categories))
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	category, err := h.Catalog.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(category))
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.Catalog.DeleteCategory(c.Request.Context(), c.Param("slug")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(nil))
}
