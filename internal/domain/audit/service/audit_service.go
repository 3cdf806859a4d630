package service

import (
	"encoding/json"

	"fansite_payment/internal/domain/audit/model"
	"fansite_payment/internal/domain/audit/repository"
	"fansite_payment/pkg/logger"

	"go.uber.org/zap"
)

// AuditService 审计服务
// Log 不返回错误：审计写入失败记入应用日志，不反过来中断支付处理
type AuditService interface {
	Log(userID, action, targetType, targetID string, metadata map[string]interface{}, riskLevel string)
	GetLogs(page, limit int, riskLevel string) ([]model.AuditLog, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Log(userID, action, targetType, targetID string, metadata map[string]interface{}, riskLevel string) {
	var meta json.RawMessage
	if metadata != nil {
		meta, _ = json.Marshal(metadata)
	}
	if riskLevel == "" {
		riskLevel = model.RiskNormal
	}

	entry := &model.AuditLog{
		UserID:     userID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   meta,
		RiskLevel:  riskLevel,
	}

	if err := s.repo.Create(entry); err != nil {
		logger.Log.Error("Failed to write audit log",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

func (s *auditService) GetLogs(page, limit int, riskLevel string) ([]model.AuditLog, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.GetList((page-1)*limit, limit, riskLevel)
}
