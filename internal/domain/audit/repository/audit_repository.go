package repository

import (
	"fansite_payment/internal/domain/audit/model"

	"gorm.io/gorm"
)

// AuditRepository 接口定义
type AuditRepository interface {
	Create(entry *model.AuditLog) error
	GetList(offset, limit int, riskLevel string) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(entry *model.AuditLog) error {
	return r.db.Create(entry).Error
}

// GetList 分页查询审计日志，riskLevel 为空时不过滤
func (r *auditRepository) GetList(offset, limit int, riskLevel string) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	query := r.db.Model(&model.AuditLog{})
	if riskLevel != "" {
		query = query.Where("risk_level = ?", riskLevel)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
