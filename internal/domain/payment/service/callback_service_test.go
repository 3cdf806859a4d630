package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	auditModel "fansite_payment/internal/domain/audit/model"
	"fansite_payment/internal/domain/payment/model"
	"fansite_payment/internal/domain/payment/signature"
	"fansite_payment/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

const testSecret = "unit_test_payment_secret_32_chars!!!"

func init() {
	logger.Init("debug")
}

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(order *model.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByOrderNo(orderNo string) (*model.Order, error) {
	args := m.Called(orderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByTradeNo(tradeNo string) (*model.Order, error) {
	args := m.Called(tradeNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(orderNo string, status string) error {
	args := m.Called(orderNo, status)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(orderNo, tradeNo string, paidAt time.Time) error {
	args := m.Called(orderNo, tradeNo, paidAt)
	return args.Error(0)
}

// MockLockManager is a mock of lock.Manager
type MockLockManager struct {
	mock.Mock
}

func (m *MockLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLockManager) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

// MockFulfillmentService is a mock of FulfillmentService
type MockFulfillmentService struct {
	mock.Mock
}

func (m *MockFulfillmentService) Fulfill(order *model.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

// MockAuditService is a mock of AuditService
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Log(userID, action, targetType, targetID string, metadata map[string]interface{}, riskLevel string) {
	m.Called(userID, action, targetType, targetID, metadata, riskLevel)
}

func (m *MockAuditService) GetLogs(page, limit int, riskLevel string) ([]auditModel.AuditLog, int64, error) {
	args := m.Called(page, limit, riskLevel)
	return args.Get(0).([]auditModel.AuditLog), args.Get(1).(int64), args.Error(2)
}

type callbackFixture struct {
	orders  *MockOrderRepository
	locks   *MockLockManager
	fulfill *MockFulfillmentService
	audit   *MockAuditService
	svc     CallbackService
}

func newFixture() *callbackFixture {
	f := &callbackFixture{
		orders:  new(MockOrderRepository),
		locks:   new(MockLockManager),
		fulfill: new(MockFulfillmentService),
		audit:   new(MockAuditService),
	}
	f.svc = NewCallbackService(
		f.orders,
		f.locks,
		signature.NewVerifier(testSecret),
		f.fulfill,
		f.audit,
		nil, // metrics
		nil, // notifier
		5*time.Minute,
		10*time.Second,
	)
	return f
}

func (f *callbackFixture) expectLock(orderNo string) {
	f.locks.On("Acquire", mock.Anything, "payment_lock:"+orderNo, 10*time.Second).
		Return("token-1", true, nil)
	f.locks.On("Release", mock.Anything, "payment_lock:"+orderNo, "token-1").Return(nil)
}

// signedRequest 构造一个签名合法的回调请求
func signedRequest(orderNo, tradeNo, amount, status string) *model.CallbackRequest {
	req := &model.CallbackRequest{
		OrderNo: orderNo,
		TradeNo: tradeNo,
		Amount:  amount,
		Status:  status,
		Nonce:   "n1",
	}
	req.Sign = signature.NewVerifier(testSecret).Sign(req)
	return req
}

func pendingOrder(orderNo string, amount int64, productType, productID string) *model.Order {
	o := &model.Order{
		OrderNo:     orderNo,
		UserID:      "user-1",
		Amount:      amount,
		ProductType: productType,
		ProductID:   productID,
		Status:      model.OrderStatusPending,
	}
	o.ID = "order-id-1"
	return o
}

func TestProcessCallbackSuccess(t *testing.T) {
	f := newFixture()
	order := pendingOrder("ORD-1", 5000, model.ProductTypeCoins, "200")
	req := signedRequest("ORD-1", "TXN-1", "50.00", model.CallbackStatusSuccess)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, gorm.ErrRecordNotFound)
	f.orders.On("GetByOrderNo", "ORD-1").Return(order, nil)
	f.fulfill.On("Fulfill", order).Return(nil)
	f.orders.On("MarkPaid", "ORD-1", "TXN-1", mock.AnythingOfType("time.Time")).Return(nil)
	f.audit.On("Log", "user-1", auditModel.ActionPaymentSuccess, "order", "ORD-1",
		mock.Anything, auditModel.RiskNormal).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.True(t, res.Success)
	assert.Equal(t, "支付成功", res.Message)
	f.orders.AssertExpectations(t)
	f.locks.AssertExpectations(t)
	f.fulfill.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestProcessCallbackIdempotentReplay(t *testing.T) {
	// 已 paid 的订单再次收到 success 回调：幂等短路，不重复发货
	f := newFixture()
	order := pendingOrder("ORD-1", 5000, model.ProductTypeCoins, "200")
	order.Status = model.OrderStatusPaid
	req := signedRequest("ORD-1", "TXN-1", "50.00", model.CallbackStatusSuccess)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(order, nil)
	f.orders.On("GetByOrderNo", "ORD-1").Return(order, nil)

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.True(t, res.Success)
	assert.Equal(t, "订单已处理", res.Message)
	f.fulfill.AssertNotCalled(t, "Fulfill", mock.Anything)
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.locks.AssertExpectations(t)
}

func TestProcessCallbackLockContention(t *testing.T) {
	f := newFixture()
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusSuccess)

	f.locks.On("Acquire", mock.Anything, "payment_lock:ORD-1", 10*time.Second).
		Return("", false, nil)

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusTooManyRequests, res.HTTPStatus)
	assert.False(t, res.Success)
	assert.Equal(t, "请求处理中，请勿重复提交", res.Error)
	// 没拿到锁就不该碰数据库，也不记审计
	f.orders.AssertNotCalled(t, "GetByOrderNo", mock.Anything)
	f.audit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.locks.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessCallbackTradeNoReuse(t *testing.T) {
	// TXN-1 已绑定到 ORD-1，拿同一交易号打 ORD-2 必须拒绝
	f := newFixture()
	bound := pendingOrder("ORD-1", 5000, model.ProductTypeCoins, "200")
	bound.Status = model.OrderStatusPaid
	req := signedRequest("ORD-2", "TXN-1", "5000", model.CallbackStatusSuccess)

	f.expectLock("ORD-2")
	f.orders.On("GetByTradeNo", "TXN-1").Return(bound, nil)
	f.audit.On("Log", "user-1", auditModel.ActionCallbackRejected, "order", "ORD-2",
		mock.Anything, auditModel.RiskHigh).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.False(t, res.Success)
	f.orders.AssertNotCalled(t, "GetByOrderNo", mock.Anything)
	f.audit.AssertExpectations(t)
	f.locks.AssertExpectations(t)
}

func TestProcessCallbackBadSignature(t *testing.T) {
	f := newFixture()
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusSuccess)
	req.Sign = "deadbeef"

	f.audit.On("Log", "", auditModel.ActionCallbackRejected, "order", "ORD-1",
		mock.Anything, auditModel.RiskHigh).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusForbidden, res.HTTPStatus)
	// 验签失败必须发生在任何数据库操作之前
	f.orders.AssertNotCalled(t, "GetByTradeNo", mock.Anything)
	f.orders.AssertNotCalled(t, "GetByOrderNo", mock.Anything)
	f.locks.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
	f.audit.AssertExpectations(t)
}

func TestProcessCallbackMissingSignature(t *testing.T) {
	f := newFixture()
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusSuccess)
	req.Sign = ""

	f.audit.On("Log", "", auditModel.ActionCallbackRejected, "order", "ORD-1",
		mock.Anything, auditModel.RiskHigh).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, "缺少签名", res.Error)
	f.audit.AssertExpectations(t)
}

func TestProcessCallbackExpiredTimestamp(t *testing.T) {
	// 时间戳过期先于验签：即使签名是垃圾也应回"请求已过期"而不是 403
	f := newFixture()
	req := &model.CallbackRequest{
		OrderNo:   "ORD-1",
		TradeNo:   "TXN-1",
		Amount:    "5000",
		Status:    model.CallbackStatusSuccess,
		Timestamp: "1000000000", // 远古时间戳
		Sign:      "garbage",
	}

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, "请求已过期", res.Error)
	f.audit.AssertNotCalled(t, "Log", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessCallbackOrderNotFound(t *testing.T) {
	f := newFixture()
	req := signedRequest("ORD-404", "TXN-1", "5000", model.CallbackStatusSuccess)

	f.expectLock("ORD-404")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, gorm.ErrRecordNotFound)
	f.orders.On("GetByOrderNo", "ORD-404").Return(nil, gorm.ErrRecordNotFound)

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusNotFound, res.HTTPStatus)
	assert.Equal(t, "订单不存在", res.Error)
	f.locks.AssertExpectations(t)
}

func TestProcessCallbackIllegalTransition(t *testing.T) {
	// cancelled 是终态，success 回调必须报当前状态
	f := newFixture()
	order := pendingOrder("ORD-1", 5000, model.ProductTypeCoins, "200")
	order.Status = model.OrderStatusCancelled
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusSuccess)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, gorm.ErrRecordNotFound)
	f.orders.On("GetByOrderNo", "ORD-1").Return(order, nil)

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, "订单状态不正确: cancelled", res.Error)
	f.fulfill.AssertNotCalled(t, "Fulfill", mock.Anything)
	f.locks.AssertExpectations(t)
}

func TestProcessCallbackAmountMismatch(t *testing.T) {
	f := newFixture()
	order := pendingOrder("ORD-1", 1000, model.ProductTypeCoins, "50")
	req := signedRequest("ORD-1", "TXN-1", "999", model.CallbackStatusSuccess)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, gorm.ErrRecordNotFound)
	f.orders.On("GetByOrderNo", "ORD-1").Return(order, nil)
	f.audit.On("Log", "user-1", auditModel.ActionCallbackRejected, "order", "ORD-1",
		mock.MatchedBy(func(meta map[string]interface{}) bool {
			return meta["order_amount"] == int64(1000) && meta["callback_amount"] == int64(999)
		}), auditModel.RiskHigh).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusBadRequest, res.HTTPStatus)
	assert.Equal(t, "金额不一致", res.Error)
	f.fulfill.AssertNotCalled(t, "Fulfill", mock.Anything)
	f.audit.AssertExpectations(t)
}

func TestProcessCallbackFulfillmentFailure(t *testing.T) {
	// 发货失败：订单状态不能动，回 500 等网关重试
	f := newFixture()
	order := pendingOrder("ORD-1", 5000, model.ProductTypeShopItem, "item-404")
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusSuccess)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, gorm.ErrRecordNotFound)
	f.orders.On("GetByOrderNo", "ORD-1").Return(order, nil)
	f.fulfill.On("Fulfill", order).Return(assert.AnError)
	f.audit.On("Log", "user-1", auditModel.ActionPaymentFailed, "order", "ORD-1",
		mock.Anything, auditModel.RiskHigh).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
	assert.False(t, res.Success)
	f.orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything)
	f.audit.AssertExpectations(t)
	f.locks.AssertExpectations(t)
}

func TestProcessCallbackFailedStatus(t *testing.T) {
	// 支付失败回调：落 failed，200 确认收到
	f := newFixture()
	order := pendingOrder("ORD-1", 5000, model.ProductTypeCoins, "200")
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusFailed)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, gorm.ErrRecordNotFound)
	f.orders.On("GetByOrderNo", "ORD-1").Return(order, nil)
	f.orders.On("UpdateStatus", "ORD-1", model.OrderStatusFailed).Return(nil)
	f.audit.On("Log", "user-1", auditModel.ActionPaymentFailed, "order", "ORD-1",
		mock.Anything, auditModel.RiskNormal).Return()

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusOK, res.HTTPStatus)
	assert.True(t, res.Success)
	f.fulfill.AssertNotCalled(t, "Fulfill", mock.Anything)
	f.orders.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestProcessCallbackLockReleasedOnFailure(t *testing.T) {
	// 业务失败路径也必须释放锁
	f := newFixture()
	req := signedRequest("ORD-1", "TXN-1", "5000", model.CallbackStatusSuccess)

	f.expectLock("ORD-1")
	f.orders.On("GetByTradeNo", "TXN-1").Return(nil, assert.AnError)

	res := f.svc.ProcessCallback(context.Background(), req, "1.2.3.4")

	assert.Equal(t, http.StatusInternalServerError, res.HTTPStatus)
	f.locks.AssertCalled(t, "Release", mock.Anything, "payment_lock:ORD-1", "token-1")
}
