package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	auditModel "fansite_payment/internal/domain/audit/model"
	auditService "fansite_payment/internal/domain/audit/service"
	"fansite_payment/internal/domain/fulfillment/model"
	"fansite_payment/internal/domain/fulfillment/repository"
	paymentModel "fansite_payment/internal/domain/payment/model"
	userService "fansite_payment/internal/domain/user/service"
	"fansite_payment/pkg/logger"

	"go.uber.org/zap"
)

// FulfillmentService 发货服务：按商品类型执行支付成功后的业务动作
// 必须在订单落 paid 之前调用；这里失败则订单保持原状态等待网关重试
type FulfillmentService interface {
	Fulfill(order *paymentModel.Order) error
}

type fulfillmentService struct {
	repo  repository.FulfillmentRepository
	users userService.UserService
	audit auditService.AuditService
}

func NewFulfillmentService(repo repository.FulfillmentRepository, users userService.UserService, audit auditService.AuditService) FulfillmentService {
	return &fulfillmentService{
		repo:  repo,
		users: users,
		audit: audit,
	}
}

func (s *fulfillmentService) Fulfill(order *paymentModel.Order) error {
	switch order.ProductType {
	case paymentModel.ProductTypeSubscription:
		return s.fulfillSubscription(order)
	case paymentModel.ProductTypeCoins:
		return s.fulfillCoins(order)
	case paymentModel.ProductTypeShopItem:
		return s.fulfillShopItem(order)
	default:
		// 未知商品类型不阻塞订单落账：新商品类型可能先于本服务上线
		logger.Log.Warn("Unknown product type, skipping fulfillment",
			zap.String("order_no", order.OrderNo),
			zap.String("product_type", order.ProductType))
		return nil
	}
}

// fulfillSubscription 解析 "tier:天数" 形式的商品ID，创建订阅并延长会员
func (s *fulfillmentService) fulfillSubscription(order *paymentModel.Order) error {
	parts := strings.SplitN(order.ProductID, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid subscription product id %q", order.ProductID)
	}
	tier := parts[0]
	days, err := strconv.Atoi(parts[1])
	if err != nil || days <= 0 {
		return fmt.Errorf("invalid subscription period %q", order.ProductID)
	}

	duration := time.Duration(days) * 24 * time.Hour
	if err := s.repo.CreateSubscription(&model.Subscription{
		UserID:   order.UserID,
		OrderNo:  order.OrderNo,
		Tier:     tier,
		Days:     days,
		ExpireAt: time.Now().Add(duration),
	}); err != nil {
		return err
	}

	if err := s.users.ExtendMembership(order.UserID, duration); err != nil {
		return err
	}

	s.audit.Log(order.UserID, auditModel.ActionItemAcquired, "subscription", order.OrderNo, map[string]interface{}{
		"tier": tier,
		"days": days,
	}, auditModel.RiskNormal)
	return nil
}

// fulfillCoins 商品ID即金币数量
func (s *fulfillmentService) fulfillCoins(order *paymentModel.Order) error {
	coins, err := strconv.ParseInt(order.ProductID, 10, 64)
	if err != nil || coins <= 0 {
		return fmt.Errorf("invalid coin amount %q", order.ProductID)
	}

	if err := s.repo.CreditCoins(order.UserID, coins, order.OrderNo, model.CoinReasonPayment); err != nil {
		return err
	}

	s.audit.Log(order.UserID, auditModel.ActionItemAcquired, "coins", order.OrderNo, map[string]interface{}{
		"coins": coins,
	}, auditModel.RiskNormal)
	return nil
}

// fulfillShopItem 商品必须存在且上架，否则报错让网关重试（或人工介入）
func (s *fulfillmentService) fulfillShopItem(order *paymentModel.Order) error {
	item, err := s.repo.GetShopItem(order.ProductID)
	if err != nil {
		return fmt.Errorf("shop item %q not found: %w", order.ProductID, err)
	}

	if err := s.repo.CreatePurchase(&model.ShopPurchase{
		UserID:  order.UserID,
		ItemID:  item.ID,
		OrderNo: order.OrderNo,
	}); err != nil {
		return err
	}

	s.audit.Log(order.UserID, auditModel.ActionItemAcquired, "shop_item", order.OrderNo, map[string]interface{}{
		"item_id":   item.ID,
		"item_name": item.Name,
	}, auditModel.RiskNormal)
	return nil
}
