package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	auditModel "fansite_payment/internal/domain/audit/model"
	auditService "fansite_payment/internal/domain/audit/service"
	fulfillService "fansite_payment/internal/domain/fulfillment/service"
	"fansite_payment/internal/domain/payment/model"
	"fansite_payment/internal/domain/payment/repository"
	"fansite_payment/internal/domain/payment/signature"
	"fansite_payment/internal/pkg/worker"
	"fansite_payment/pkg/lock"
	"fansite_payment/pkg/logger"
	"fansite_payment/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockKeyPrefix = "payment_lock:"

// CallbackService 支付回调处理管线
// 校验顺序是刻意的：时间戳在验签之前（便宜的检查先挡掉重放），
// 锁在读订单之前（两个并发回调不能同时读到 pending），
// 发货在落 paid 之前（发货失败订单保持可重试，而不是假 paid）。
type CallbackService interface {
	ProcessCallback(ctx context.Context, req *model.CallbackRequest, clientIP string) *model.CallbackResult
}

type callbackService struct {
	orders      repository.OrderRepository
	locks       lock.Manager
	verifier    *signature.Verifier
	fulfillment fulfillService.FulfillmentService
	audit       auditService.AuditService
	collector   *metrics.Collector
	notifier    *worker.NotifyPool

	timestampWindow time.Duration
	lockTTL         time.Duration
}

// NewCallbackService 创建回调服务，collector / notifier 允许为 nil
func NewCallbackService(
	orders repository.OrderRepository,
	locks lock.Manager,
	verifier *signature.Verifier,
	fulfillment fulfillService.FulfillmentService,
	audit auditService.AuditService,
	collector *metrics.Collector,
	notifier *worker.NotifyPool,
	timestampWindow, lockTTL time.Duration,
) CallbackService {
	return &callbackService{
		orders:          orders,
		locks:           locks,
		verifier:        verifier,
		fulfillment:     fulfillment,
		audit:           audit,
		collector:       collector,
		notifier:        notifier,
		timestampWindow: timestampWindow,
		lockTTL:         lockTTL,
	}
}

func (s *callbackService) ProcessCallback(ctx context.Context, req *model.CallbackRequest, clientIP string) *model.CallbackResult {
	start := time.Now()
	res := s.process(ctx, req, clientIP)
	s.collector.ObserveCallback(outcomeOf(res), time.Since(start))
	return res
}

func (s *callbackService) process(ctx context.Context, req *model.CallbackRequest, clientIP string) *model.CallbackResult {
	// 1. 时间戳新鲜度（存在才检查）。过期请求无论签名真假都拒绝，先于验签
	if req.Timestamp != "" && !signature.ValidateTimestamp(req.Timestamp, s.timestampWindow) {
		return reject(http.StatusBadRequest, "请求已过期")
	}

	// 2. 验签
	if req.Sign == "" {
		s.audit.Log("", auditModel.ActionCallbackRejected, "order", req.OrderNo, map[string]interface{}{
			"reason": "missing signature",
			"ip":     clientIP,
		}, auditModel.RiskHigh)
		return reject(http.StatusBadRequest, "缺少签名")
	}
	if !s.verifier.Verify(req) {
		s.audit.Log("", auditModel.ActionCallbackRejected, "order", req.OrderNo, map[string]interface{}{
			"reason":   "signature mismatch",
			"ip":       clientIP,
			"trade_no": req.TradeNo,
		}, auditModel.RiskHigh)
		return reject(http.StatusForbidden, "签名验证失败")
	}

	// 3. 订单级并发锁。抢不到说明同一订单已有回调在处理中，属于网关重试
	// 的正常竞争，不记审计
	lockKey := lockKeyPrefix + req.OrderNo
	token, ok, err := s.locks.Acquire(ctx, lockKey, s.lockTTL)
	if err != nil {
		return s.internalError(req, "acquire lock", err)
	}
	if !ok {
		s.collector.LockContention()
		return reject(http.StatusTooManyRequests, "请求处理中，请勿重复提交")
	}
	defer func() {
		if err := s.locks.Release(ctx, lockKey, token); err != nil {
			// 释放失败不影响结果，锁过期由 TTL 兜底
			logger.Log.Warn("Failed to release payment lock",
				zap.String("key", lockKey), zap.Error(err))
		}
	}()

	// 4. 交易号查重：同一 trade_no 不能落到两个不同订单上
	existing, err := s.orders.GetByTradeNo(req.TradeNo)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return s.internalError(req, "dedup lookup", err)
	}
	if existing != nil && existing.OrderNo != req.OrderNo {
		s.audit.Log(existing.UserID, auditModel.ActionCallbackRejected, "order", req.OrderNo, map[string]interface{}{
			"reason":            "trade_no reuse",
			"trade_no":          req.TradeNo,
			"bound_order_no":    existing.OrderNo,
			"callback_order_no": req.OrderNo,
			"ip":                clientIP,
		}, auditModel.RiskHigh)
		return reject(http.StatusBadRequest, "交易号已被占用")
	}

	// 5. 订单与状态机
	order, err := s.orders.GetByOrderNo(req.OrderNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reject(http.StatusNotFound, "订单不存在")
		}
		return s.internalError(req, "order lookup", err)
	}

	target := model.OrderStatusFailed
	if req.Status == model.CallbackStatusSuccess {
		target = model.OrderStatusPaid
	}

	if order.Status == target {
		// 重复投递，已处理过：幂等成功，不再发货、不再写成功审计
		return &model.CallbackResult{HTTPStatus: http.StatusOK, Success: true, Message: "订单已处理"}
	}
	if !model.CanTransition(order.Status, target) {
		return reject(http.StatusBadRequest, fmt.Sprintf("订单状态不正确: %s", order.Status))
	}

	// 6. 金额对账：验签通过也要核对，防止链路篡改或字段混淆导致错账
	paidAmount, err := signature.NormalizeAmount(req.Amount)
	if err != nil {
		return reject(http.StatusBadRequest, "金额格式错误")
	}
	if !signature.ValidateAmount(paidAmount, order.Amount) {
		s.audit.Log(order.UserID, auditModel.ActionCallbackRejected, "order", order.OrderNo, map[string]interface{}{
			"reason":          "amount mismatch",
			"order_amount":    order.Amount,
			"callback_amount": paidAmount,
			"ip":              clientIP,
		}, auditModel.RiskHigh)
		return reject(http.StatusBadRequest, "金额不一致")
	}

	// 7. 支付失败回调：记账后直接确认收到
	if target == model.OrderStatusFailed {
		if err := s.orders.UpdateStatus(order.OrderNo, model.OrderStatusFailed); err != nil {
			return s.internalError(req, "mark failed", err)
		}
		s.audit.Log(order.UserID, auditModel.ActionPaymentFailed, "order", order.OrderNo, map[string]interface{}{
			"trade_no": req.TradeNo,
		}, auditModel.RiskNormal)
		return &model.CallbackResult{HTTPStatus: http.StatusOK, Success: true, Message: "已确认支付失败"}
	}

	// 8. 先发货后落账。发货失败时订单保持原状态，500 让网关稍后重试，
	// 重试会再次经过锁/查重/状态机，安全可重入
	if err := s.fulfillment.Fulfill(order); err != nil {
		logger.Log.Error("Fulfillment failed",
			zap.String("order_no", order.OrderNo),
			zap.String("product_type", order.ProductType),
			zap.Error(err))
		s.collector.FulfillmentFailure(order.ProductType)
		s.audit.Log(order.UserID, auditModel.ActionPaymentFailed, "order", order.OrderNo, map[string]interface{}{
			"reason":   "fulfillment error",
			"error":    err.Error(),
			"trade_no": req.TradeNo,
		}, auditModel.RiskHigh)
		return &model.CallbackResult{HTTPStatus: http.StatusInternalServerError, Success: false, Error: "业务处理失败"}
	}

	now := time.Now()
	if err := s.orders.MarkPaid(order.OrderNo, req.TradeNo, now); err != nil {
		// 发货已完成但落账失败：高风险，依赖网关重试 + 发货表上的
		// order_no 唯一约束避免二次发货
		s.audit.Log(order.UserID, auditModel.ActionPaymentFailed, "order", order.OrderNo, map[string]interface{}{
			"reason":   "status commit failed",
			"error":    err.Error(),
			"trade_no": req.TradeNo,
		}, auditModel.RiskHigh)
		return s.internalError(req, "mark paid", err)
	}

	s.audit.Log(order.UserID, auditModel.ActionPaymentSuccess, "order", order.OrderNo, map[string]interface{}{
		"trade_no": req.TradeNo,
		"amount":   order.Amount,
		"paid_at":  now,
	}, auditModel.RiskNormal)

	s.notifier.AddTask(worker.NotifyTask{
		UserID:  order.UserID,
		OrderNo: order.OrderNo,
		Title:   "支付成功",
		Body:    fmt.Sprintf("您的订单 %s 已支付成功。", order.OrderNo),
	})

	return &model.CallbackResult{HTTPStatus: http.StatusOK, Success: true, Message: "支付成功"}
}

// internalError 统一的内部错误出口：细节只进日志，不泄露给网关
func (s *callbackService) internalError(req *model.CallbackRequest, stage string, err error) *model.CallbackResult {
	logger.Log.Error("Callback processing error",
		zap.String("stage", stage),
		zap.String("order_no", req.OrderNo),
		zap.Error(err))
	return &model.CallbackResult{HTTPStatus: http.StatusInternalServerError, Success: false, Error: "内部错误"}
}

func reject(status int, msg string) *model.CallbackResult {
	return &model.CallbackResult{HTTPStatus: status, Success: false, Error: msg}
}

func outcomeOf(res *model.CallbackResult) string {
	switch {
	case res.Success:
		return "success"
	case res.HTTPStatus == http.StatusTooManyRequests:
		return "contention"
	case res.HTTPStatus >= http.StatusInternalServerError:
		return "error"
	default:
		return "rejected"
	}
}
