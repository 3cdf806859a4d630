package audit

import (
	"fansite_payment/internal/domain/audit/handler"
	"fansite_payment/internal/domain/audit/repository"
	"fansite_payment/internal/domain/audit/service"
	"fansite_payment/internal/pkg/middleware"
	"fansite_payment/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// AuditModule 审计模块
type AuditModule struct{}

func init() {
	registry.Register(&AuditModule{})
}

func (m *AuditModule) Name() string {
	return "audit"
}

func (m *AuditModule) Priority() int {
	return 10
}

func (m *AuditModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewAuditRepository(ctx.DB)
	svc := service.NewAuditService(repo)
	h := handler.NewAuditHandler(svc)

	setupRoutes(ctx.Router, h)
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.AuditHandler) {
	g := r.Group("/audit")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("/logs", h.GetLogs)
	}
}
