package handler

import (
	"net/http"

	"fansite_payment/internal/domain/audit/service"
	"fansite_payment/pkg/response"
	"fansite_payment/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AuditHandler 审计日志查询（运营面，只读）
type AuditHandler struct {
	service service.AuditService
}

func NewAuditHandler(s service.AuditService) *AuditHandler {
	return &AuditHandler{service: s}
}

// GetLogs 分页查询审计日志
// @Summary 审计日志列表
// @Tags Audit
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Limit"
// @Param risk_level query string false "normal|high"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /audit/logs [get]
func (h *AuditHandler) GetLogs(c *gin.Context) {
	var p utils.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	_, limit := p.GetPageOffset()

	logs, total, err := h.service.GetLogs(p.Page, limit, c.Query("risk_level"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, utils.PageResult{
		List:  logs,
		Total: total,
		Page:  p.Page,
		Limit: limit,
	})
}
