package model

import (
	"time"

	baseModel "fansite_payment/pkg/model"
)

// Order 订单模型
// Amount 以分为单位存储，避免浮点误差
type Order struct {
	baseModel.BaseModel
	OrderNo     string     `gorm:"unique;not null" json:"orderNo"`
	TradeNo     string     `gorm:"index" json:"tradeNo"` // 网关交易号，支付成功后绑定
	UserID      string     `gorm:"type:uuid" json:"userId"`
	Amount      int64      `json:"amount"` // 分
	ProductType string     `json:"productType"`
	ProductID   string     `json:"productId"` // 含义随 ProductType 变化
	Status      string     `gorm:"default:'pending'" json:"status"`
	PaidAt      *time.Time `json:"paidAt,omitempty"`
}

// 订单状态
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusFailed    = "failed"
	OrderStatusCancelled = "cancelled"
	OrderStatusExpired   = "expired"
	OrderStatusRefunded  = "refunded"
)

// 商品类型
const (
	ProductTypeSubscription = "subscription"
	ProductTypeCoins        = "coins"
	ProductTypeShopItem     = "shop_item"
)

// statusTransitions 订单状态机邻接表
// cancelled / expired / refunded 为终态
var statusTransitions = map[string][]string{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled, OrderStatusExpired},
	OrderStatusPaid:      {OrderStatusRefunded},
	OrderStatusFailed:    {OrderStatusPending},
	OrderStatusCancelled: {},
	OrderStatusExpired:   {},
	OrderStatusRefunded:  {},
}

// CanTransition 判断 from -> to 是否为合法状态迁移
// 注意：from == to 不是合法迁移，由调用方按"已处理"幂等短路处理
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
