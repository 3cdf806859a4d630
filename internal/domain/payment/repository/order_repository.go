package repository

import (
	"time"

	"fansite_payment/internal/domain/payment/model"

	"gorm.io/gorm"
)

// OrderRepository 订单数据访问
type OrderRepository interface {
	Create(order *model.Order) error
	GetByOrderNo(orderNo string) (*model.Order, error)
	// GetByTradeNo 查询已绑定该网关交易号的订单，用于交易号复用检测
	GetByTradeNo(tradeNo string) (*model.Order, error)
	UpdateStatus(orderNo string, status string) error
	// MarkPaid 落 paid 终态，同时绑定交易号与支付时间
	MarkPaid(orderNo, tradeNo string, paidAt time.Time) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(order *model.Order) error {
	return r.db.Create(order).Error
}

func (r *orderRepository) GetByOrderNo(orderNo string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetByTradeNo(tradeNo string) (*model.Order, error) {
	var order model.Order
	if err := r.db.Where("trade_no = ?", tradeNo).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(orderNo string, status string) error {
	return r.db.Model(&model.Order{}).Where("order_no = ?", orderNo).
		Update("status", status).Error
}

func (r *orderRepository) MarkPaid(orderNo, tradeNo string, paidAt time.Time) error {
	return r.db.Model(&model.Order{}).Where("order_no = ?", orderNo).Updates(map[string]interface{}{
		"status":   model.OrderStatusPaid,
		"trade_no": tradeNo,
		"paid_at":  paidAt,
	}).Error
}
