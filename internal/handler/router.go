package handler

import (
	"time"

	"originality-go/internal/config"
	"originality-go/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter 创建路由引擎并注册全部路由。
func NewRouter(cfg config.ServerConfig, similarity *SimilarityHandler, reports *ReportHandler, corpus *CorpusHandler) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery(), corsMiddleware(cfg.CORSAllowedOrigins))

	r.GET("/health", corpus.Health)
	// 与旧版前端兼容的检测入口
	r.POST("/check-similarity/", similarity.CheckSimilarity)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/similarity/check", similarity.CheckSimilarity)
		apiV1.GET("/corpus", corpus.ListCorpus)

		reportGroup := apiV1.Group("/reports")
		{
			reportGroup.GET("", reports.ListReports)
			reportGroup.GET("/:reportId", reports.GetReport)
		}
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{ReportIDHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = origins
	}
	return cors.New(conf)
}
