// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/auth-gate/internal/auth"
	"github.com/yourusername/auth-gate/internal/config"
	"github.com/yourusername/auth-gate/internal/password"
	"github.com/yourusername/auth-gate/internal/token"
	"github.com/yourusername/auth-gate/internal/user"
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
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	// クッキーを伴うリクエストを受けるため、ワイルドカードではなく明示したオリジンを返す
	origins := strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
	}
	router.Use(cors.New(corsConfig))

	// ユーザーストアの接続
	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpt)
	store := user.NewStore(redisClient)

	// 認証コンポーネントの組み立て
	hasher := password.NewHasher(cfg.BcryptCost)
	tokens := token.NewService(cfg.TokenSecret, time.Duration(cfg.TokenTTLSeconds)*time.Second)

	// 監査ワーカーの起動（無効時は recorder が nil になり記録はスキップされる）
	recorder, auditWorker, err := setupAudit(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to set up audit: %v", err)
	}
	if auditWorker != nil {
		if err := auditWorker.Start(); err != nil {
			log.Fatalf("Failed to start audit worker: %v", err)
		}
		defer auditWorker.Shutdown()
	}

	// ルーティングの設定
	manager := auth.NewManager(cfg, store, hasher, tokens, recorder)
	setupRoutes(router, manager)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "auth-gate-api",
		"version": "0.1.0",
	})
}

// setupRoutes は認証エンドポイントの配線を行います。
func setupRoutes(router *gin.Engine, manager *auth.Manager) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	router.POST("/register", manager.Register)
	router.POST("/login", manager.Login)
	router.POST("/logout", manager.Logout)

	// /auth-check を正とし、旧来の /me も同じハンドラーに向ける
	router.GET("/auth-check", manager.RequireSession(), manager.AuthCheck)
	router.GET("/me", manager.RequireSession(), manager.AuthCheck)
}
