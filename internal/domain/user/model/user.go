package model

import (
	"time"

	baseModel "fansite_payment/pkg/model"
)

// User 用户模型（本服务只关心发货目标字段：会员与金币余额）
type User struct {
	baseModel.BaseModel
	Nickname       string     `json:"nickname"`
	IsMember       bool       `json:"isMember"`
	MemberExpireAt *time.Time `json:"memberExpireAt,omitempty"`
	Coins          int64      `json:"coins"` // 金币余额
}
