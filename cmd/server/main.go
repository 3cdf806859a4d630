package main

import (
	"log"
	"net/http"

	_ "fansite_payment/internal/domain/audit"
	_ "fansite_payment/internal/domain/payment"
	"fansite_payment/internal/pkg/config"
	"fansite_payment/internal/pkg/middleware"
	"fansite_payment/internal/pkg/registry"
	"fansite_payment/pkg/database"
	"fansite_payment/pkg/logger"
	"fansite_payment/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	// 1. 配置与日志
	config.LoadConfig()
	logger.Init(config.GlobalConfig.Server.Mode)
	defer logger.Sync()

	// 2. 基础设施
	db := database.InitDatabase()
	rdb := database.InitRedis()

	// 3. HTTP 引擎
	gin.SetMode(config.GlobalConfig.Server.Mode)
	r := gin.New()
	r.Use(middleware.TraceMiddleware(), middleware.LoggerMiddleware())

	// 未捕获 panic 统一兜底：回调方是外部网关，只回笼统的 500
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "内部错误",
		})
	}))

	r.Use(cors.Default())

	// 非 POST 打到回调路由返回 405 而不是 404
	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"success": false, "error": "method not allowed"})
	})

	// 4. 运维端点
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 5. 模块初始化
	collector := metrics.NewCollector()
	if err := registry.InitModules(&registry.ModuleContext{
		DB:      db,
		Redis:   rdb,
		Router:  r,
		Metrics: collector,
	}); err != nil {
		log.Fatalf("Failed to init modules: %v", err)
	}

	port := config.GlobalConfig.Server.Port
	log.Printf("Server listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
