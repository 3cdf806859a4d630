package service

import (
	"fmt"
	"time"

	"fansite_payment/internal/domain/payment/model"
	"fansite_payment/internal/domain/payment/repository"

	"github.com/google/uuid"
)

// OrderService 订单创建与查询（回调之外的运营面）
type OrderService interface {
	CreateOrder(userID string, amount int64, productType, productID string) (*model.Order, error)
	GetOrder(orderNo string) (*model.Order, error)
}

type orderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

func (s *orderService) CreateOrder(userID string, amount int64, productType, productID string) (*model.Order, error) {
	// 生成订单号：时间戳 + uuid 前缀
	orderNo := fmt.Sprintf("%s%s", time.Now().Format("20060102150405"), uuid.New().String()[:8])

	order := &model.Order{
		OrderNo:     orderNo,
		UserID:      userID,
		Amount:      amount,
		ProductType: productType,
		ProductID:   productID,
		Status:      model.OrderStatusPending,
	}
	if err := s.repo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) GetOrder(orderNo string) (*model.Order, error) {
	return s.repo.GetByOrderNo(orderNo)
}
