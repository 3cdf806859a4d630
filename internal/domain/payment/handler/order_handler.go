package handler

import (
	"errors"
	"net/http"

	"fansite_payment/internal/domain/payment/service"
	"fansite_payment/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// OrderHandler 订单创建与查询
type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

type CreateOrderInput struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"` // 分
	ProductType string `json:"product_type" binding:"required,oneof=subscription coins shop_item"`
	ProductID   string `json:"product_id" binding:"required"`
}

// CreateOrder 创建订单
// @Summary 创建订单
// @Tags Payment
// @Accept json
// @Produce json
// @Param input body CreateOrderInput true "Order Info"
// @Success 200 {object} response.Response
// @Router /payment/order [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	userID := getUserIDFromContext(c)
	order, err := h.service.CreateOrder(userID, input.Amount, input.ProductType, input.ProductID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, gin.H{
		"order_no": order.OrderNo,
		"amount":   order.Amount,
		"status":   order.Status,
	})
}

// GetOrder 查询订单
// @Summary 查询订单
// @Tags Payment
// @Produce json
// @Param order_no path string true "Order No"
// @Success 200 {object} response.Response
// @Router /payment/orders/{order_no} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.GetOrder(c.Param("order_no"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, "order not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, order)
}

func getUserIDFromContext(c *gin.Context) string {
	val, _ := c.Get("userID")
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}
