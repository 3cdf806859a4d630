package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	auditModel "fansite_payment/internal/domain/audit/model"
	auditService "fansite_payment/internal/domain/audit/service"
	"fansite_payment/internal/domain/payment/model"
	"fansite_payment/internal/domain/payment/service"

	"github.com/gin-gonic/gin"
)

// CallbackHandler 支付网关异步回调入口
type CallbackHandler struct {
	service     service.CallbackService
	audit       auditService.AuditService
	ipWhitelist map[string]struct{}
	devMode     bool // 开启时跳过 IP 白名单（本地联调）
}

func NewCallbackHandler(s service.CallbackService, audit auditService.AuditService, whitelist []string, devMode bool) *CallbackHandler {
	set := make(map[string]struct{}, len(whitelist))
	for _, ip := range whitelist {
		set[strings.TrimSpace(ip)] = struct{}{}
	}
	return &CallbackHandler{
		service:     s,
		audit:       audit,
		ipWhitelist: set,
		devMode:     devMode,
	}
}

// Notify 支付回调
// @Summary 支付网关异步回调
// @Tags Payment
// @Accept json
// @Produce json
// @Router /payment/callback [post]
func (h *CallbackHandler) Notify(c *gin.Context) {
	clientIP := resolveClientIP(c.Request)

	// IP 白名单是验签之下的粗粒度防线
	if !h.devMode {
		if _, ok := h.ipWhitelist[clientIP]; !ok {
			h.audit.Log("", auditModel.ActionCallbackRejected, "ip", clientIP, map[string]interface{}{
				"reason": "ip not in whitelist",
				"path":   c.Request.URL.Path,
			}, auditModel.RiskHigh)
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "来源IP不允许"})
			return
		}
	}

	req, err := parseCallback(c)
	if err != nil {
		// 参数不全只是坏请求，还构不成安全事件，不记审计
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	res := h.service.ProcessCallback(c.Request.Context(), req, clientIP)

	body := gin.H{"success": res.Success}
	if res.Message != "" {
		body["message"] = res.Message
	}
	if res.Error != "" {
		body["error"] = res.Error
	}
	c.JSON(res.HTTPStatus, body)
}

// resolveClientIP 按优先级解析客户端 IP：
// 边缘代理头 -> X-Forwarded-For 首跳 -> X-Real-IP -> "unknown"
func resolveClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return "unknown"
}

// parseCallback 解析 JSON 或表单格式的回调体，规范化为 CallbackRequest
func parseCallback(c *gin.Context) (*model.CallbackRequest, error) {
	var fields map[string]string

	contentType := c.ContentType()
	if strings.Contains(contentType, "application/json") {
		// UseNumber 保留数字原文，验签必须用网关发来的原始字符串
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		var raw map[string]interface{}
		if err := decoder.Decode(&raw); err != nil {
			return nil, errors.New("请求体解析失败")
		}
		fields = make(map[string]string, len(raw))
		for k, v := range raw {
			fields[k] = stringify(v)
		}
	} else {
		if err := c.Request.ParseForm(); err != nil {
			return nil, errors.New("请求体解析失败")
		}
		fields = make(map[string]string)
		for k := range c.Request.PostForm {
			fields[k] = c.Request.PostFormValue(k)
		}
	}

	req := &model.CallbackRequest{
		OrderNo:   fields["order_no"],
		TradeNo:   fields["trade_no"],
		Amount:    fields["amount"],
		Status:    fields["status"],
		Timestamp: fields["timestamp"],
		Sign:      fields["sign"],
		Nonce:     fields["nonce"],
	}

	if req.OrderNo == "" || req.TradeNo == "" || req.Amount == "" || req.Status == "" {
		return nil, errors.New("缺少必要参数")
	}
	if req.Status != model.CallbackStatusSuccess && req.Status != model.CallbackStatusFailed {
		return nil, errors.New("status 取值不合法")
	}
	return req, nil
}

func stringify(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}
