package model

import (
	"time"

	baseModel "fansite_payment/pkg/model"
)

// Subscription 会员订阅记录
// OrderNo 上有唯一索引：同一订单重复发货时写入会失败而不是翻倍
type Subscription struct {
	baseModel.BaseModel
	UserID   string    `gorm:"type:uuid;index" json:"userId"`
	OrderNo  string    `gorm:"uniqueIndex" json:"orderNo"`
	Tier     string    `json:"tier"`
	Days     int       `json:"days"`
	ExpireAt time.Time `json:"expireAt"`
}

// CoinLedger 金币流水
type CoinLedger struct {
	baseModel.BaseModel
	UserID  string `gorm:"type:uuid;index" json:"userId"`
	OrderNo string `gorm:"uniqueIndex" json:"orderNo"`
	Amount  int64  `json:"amount"` // 正数为入账
	Reason  string `json:"reason"`
}

// ShopItem 商城商品
type ShopItem struct {
	baseModel.BaseModel
	Name   string `json:"name"`
	Price  int64  `json:"price"` // 分
	Active bool   `gorm:"default:true" json:"active"`
}

// ShopPurchase 商品购买/发货记录
type ShopPurchase struct {
	baseModel.BaseModel
	UserID  string `gorm:"type:uuid;index" json:"userId"`
	ItemID  string `gorm:"type:uuid" json:"itemId"`
	OrderNo string `gorm:"uniqueIndex" json:"orderNo"`
}

// 金币流水原因
const (
	CoinReasonPayment = "payment"
)
