package payment

import (
	"time"

	auditRepo "fansite_payment/internal/domain/audit/repository"
	auditService "fansite_payment/internal/domain/audit/service"
	fulfillRepo "fansite_payment/internal/domain/fulfillment/repository"
	fulfillService "fansite_payment/internal/domain/fulfillment/service"
	"fansite_payment/internal/domain/payment/handler"
	"fansite_payment/internal/domain/payment/repository"
	"fansite_payment/internal/domain/payment/service"
	"fansite_payment/internal/domain/payment/signature"
	userRepo "fansite_payment/internal/domain/user/repository"
	userService "fansite_payment/internal/domain/user/service"
	"fansite_payment/internal/pkg/config"
	"fansite_payment/internal/pkg/middleware"
	"fansite_payment/internal/pkg/push"
	"fansite_payment/internal/pkg/registry"
	"fansite_payment/internal/pkg/worker"
	"fansite_payment/pkg/lock"
	"fansite_payment/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PaymentModule 支付模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 依赖审计模块先建表/路由，优先级靠后
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	cfg := config.GlobalConfig.Payment

	// 1. 依赖注入
	orders := repository.NewOrderRepository(ctx.DB)
	audit := auditService.NewAuditService(auditRepo.NewAuditRepository(ctx.DB))

	users := userService.NewUserService(userRepo.NewUserRepository(ctx.DB))
	fulfillment := fulfillService.NewFulfillmentService(
		fulfillRepo.NewFulfillmentRepository(ctx.DB), users, audit)

	locks := lock.NewRedisLock(ctx.Redis)
	verifier := signature.NewVerifier(cfg.Secret)

	// 2. 推送服务（未配置时降级为不通知）
	var notifier *worker.NotifyPool
	if pusher, err := push.NewAliyunPushService(); err != nil {
		logger.Log.Warn("Push service disabled: " + err.Error())
	} else {
		notifier = worker.NewNotifyPool(pusher, 5, 1000)
		notifier.Start()
	}

	callbackSvc := service.NewCallbackService(
		orders,
		locks,
		verifier,
		fulfillment,
		audit,
		ctx.Metrics,
		notifier,
		time.Duration(cfg.TimestampWindow)*time.Second,
		time.Duration(cfg.LockTTL)*time.Second,
	)
	orderSvc := service.NewOrderService(orders)

	callbackHandler := handler.NewCallbackHandler(callbackSvc, audit, cfg.IPWhitelist, config.GlobalConfig.App.Debug)
	orderHandler := handler.NewOrderHandler(orderSvc)

	// 3. 路由注册
	setupRoutes(ctx.Router, callbackHandler, orderHandler)
	return nil
}

func setupRoutes(r *gin.Engine, cb *handler.CallbackHandler, oh *handler.OrderHandler) {
	g := r.Group("/payment")

	// 支付回调：无鉴权，走 IP 白名单 + 验签，加一层兜底限流
	limiter := middleware.NewIPRateLimiter(100, 200)
	g.POST("/callback", middleware.RateLimitMiddleware(limiter), cb.Notify)

	// 需要鉴权的接口
	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("/order", oh.CreateOrder)
		auth.GET("/orders/:order_no", oh.GetOrder)
	}
}
