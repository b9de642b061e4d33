package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codstore.dev/storefront/pkg/global"
	"codstore.dev/storefront/pkg/models"
)

func orderViews(orders []models.Order) []models.OrderView {
	views := make([]models.OrderView, len(orders))
	for i := range orders {
		views[i] = orders[i].View()
	}
	return views
}

func orderPage(p *global.Page[models.Order]) global.Page[models.OrderView] {
	return global.Page[models.OrderView]{Items: orderViews(p.Items), Total: p.Total, Page: p.Page, Limit: p.Limit}
}

func (h *Handler) QuoteCart(c *gin.Context) {
	var req models.QuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	quote, err := h.Orders.Quote(c.Request.Context(), req.Items)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(quote))
}

// CreateOrder places an order. A repeated Idempotency-Key returns the
// original order with 200 instead of 201.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, replayed, err := h.Orders.Create(c.Request.Context(), identity(c), &req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, err)
		return
	}
	if replayed {
		c.Header("Idempotent-Replayed", "true")
		c.JSON(http.StatusOK, global.SuccessResponse(order.View()))
		return
	}
	c.JSON(http.StatusCreated, global.SuccessResponse(order.View()))
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.Orders.Get(c.Request.Context(), identity(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(order.View()))
}

func (h *Handler) GetMyOrders(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.Orders.ListMine(c.Request.Context(), identity(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, global.SuccessResponse(orderPage(result)))
}

func (h *Handler) GetAllOrders(c *gin.Context) {
	page, limit := pageParams(c)
	result, err := h.Orders.List(c.Request.Context(), identity(c), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, global.SuccessResponse(orderPage(result)))
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req models.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.Orders.UpdateStatus(c.Request.Context(), identity(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, global.SuccessResponse(order.View()))
}
