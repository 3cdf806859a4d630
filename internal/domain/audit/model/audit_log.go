package model

import (
	"encoding/json"

	baseModel "fansite_payment/pkg/model"
)

// AuditLog 审计日志，只追加，本服务不修改不删除
type AuditLog struct {
	baseModel.BaseModel
	UserID     string          `gorm:"index" json:"userId"` // 可为空，安全拒绝类事件可能无归属用户
	Action     string          `gorm:"index" json:"action"`
	TargetType string          `json:"targetType"`
	TargetID   string          `gorm:"index" json:"targetId"`
	Metadata   json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	RiskLevel  string          `gorm:"index;default:'normal'" json:"riskLevel"`
}

// 审计动作
const (
	ActionPaymentSuccess   = "payment_success"
	ActionPaymentFailed    = "payment_failed"
	ActionItemAcquired     = "item_acquired"
	ActionCallbackRejected = "callback_rejected"
)

// 风险等级
const (
	RiskNormal = "normal"
	RiskHigh   = "high"
)
