package repository

import (
	"fansite_payment/internal/domain/fulfillment/model"
	userModel "fansite_payment/internal/domain/user/model"

	"gorm.io/gorm"
)

// FulfillmentRepository 发货相关数据访问
type FulfillmentRepository interface {
	CreateSubscription(sub *model.Subscription) error
	// CreditCoins 在同一事务里增加余额并写流水
	CreditCoins(userID string, amount int64, orderNo, reason string) error
	GetShopItem(itemID string) (*model.ShopItem, error)
	CreatePurchase(purchase *model.ShopPurchase) error
}

type fulfillmentRepository struct {
	db *gorm.DB
}

func NewFulfillmentRepository(db *gorm.DB) FulfillmentRepository {
	return &fulfillmentRepository{db: db}
}

func (r *fulfillmentRepository) CreateSubscription(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *fulfillmentRepository) CreditCoins(userID string, amount int64, orderNo, reason string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&userModel.User{}).
			Where("id = ?", userID).
			Update("coins", gorm.Expr("coins + ?", amount)).Error; err != nil {
			return err
		}
		return tx.Create(&model.CoinLedger{
			UserID:  userID,
			OrderNo: orderNo,
			Amount:  amount,
			Reason:  reason,
		}).Error
	})
}

func (r *fulfillmentRepository) GetShopItem(itemID string) (*model.ShopItem, error) {
	var item model.ShopItem
	if err := r.db.Where("id = ? AND active = true", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *fulfillmentRepository) CreatePurchase(purchase *model.ShopPurchase) error {
	return r.db.Create(purchase).Error
}
