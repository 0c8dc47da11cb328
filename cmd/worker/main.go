// Package main はレポート生成ワーカーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/report-forge/internal/config"
	"github.com/yourusername/report-forge/internal/jobs"
	"github.com/yourusername/report-forge/internal/renderer"
	"github.com/yourusername/report-forge/internal/report"
	"github.com/yourusername/report-forge/internal/strapi"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	router.Use(cors.New(corsConfig))

	// ジョブ管理（Redisストア + Asynqワーカー + パイプライン）の配線
	manager, err := setupJobs(cfg)
	if err != nil {
		log.Fatalf("Failed to set up jobs: %v", err)
	}
	manager.StartWorkers()

	// ルーティングの設定
	setupRoutes(router, cfg, manager)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting worker API on %s (mode: %s, concurrency: %d)", server.Addr, cfg.GinMode, cfg.WorkerConcurrency)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = manager.Shutdown(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}

// setupJobs はジョブ処理に必要なコンポーネント一式を構築します。
func setupJobs(cfg *config.Config) (*jobs.Manager, error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(opt)
	ttlMinutes := cfg.JobExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	store := jobs.NewStore(redisClient, time.Duration(ttlMinutes)*time.Minute)

	engine := renderer.NewHTTPEngine(cfg.RendererBaseURL, nil)
	transcoder := report.NewTranscoder(nil)
	sink := jobs.NewProgressSink(store, log.Default())

	// バックエンドクライアントはジョブごとにテナント設定から構築されます。
	backendFor := func(tc config.TenantConfig) report.Backend {
		return strapi.NewClient(tc, nil)
	}

	service, err := report.NewService(cfg, engine, transcoder, backendFor, sink, log.Default())
	if err != nil {
		return nil, err
	}

	return jobs.NewManager(cfg, service, store, log.Default())
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "report-forge-worker",
		"version": "0.1.0",
	})
}

// setupRoutes は API グループの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, manager *jobs.Manager) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	api := router.Group("/api")
	{
		api.POST("/reports", enqueueReportHandler(cfg, manager))
		api.GET("/jobs/:id", jobStatusHandler(manager))
	}
}
