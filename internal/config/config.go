// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// トークン設定
	TokenSecret     string // JWT署名用の秘密鍵（HS256）
	TokenTTLSeconds int    // セッショントークンの有効期間（秒）

	// パスワードハッシュ設定
	BcryptCost int // bcryptのコストファクター

	// ストア/キュー設定
	RedisURL string // ユーザーストアと監査キューのRedis接続URL

	// 監査ログ設定
	AuditQueueEnabled bool // 監査イベントの非同期記録を有効にするか
	AuditHistoryLimit int  // 監査ログの保持件数上限
}

// 開発モードでのみ使用するフォールバック値。本番（release）では Validate が必須項目を強制します。
const devTokenSecret = "dev-secret-change-me"

// DefaultTokenTTLSeconds はセッショントークンの既定の有効期間（7日間）です。
const DefaultTokenTTLSeconds = 7 * 24 * 60 * 60

// Load は環境変数から設定を読み込みます。
// .env.local ファイルが存在する場合はそこから読み込みます。
func Load() (*Config, error) {
	// .env.local ファイルを読み込む（存在しない場合はスキップ）
	loadEnvFile()

	config := &Config{
		// サーバー設定
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),

		// CORS設定
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),

		// トークン設定
		TokenSecret:     getEnv("TOKEN_SECRET", ""),
		TokenTTLSeconds: getEnvAsInt("TOKEN_TTL_SECONDS", DefaultTokenTTLSeconds),

		// パスワードハッシュ設定
		BcryptCost: getEnvAsInt("BCRYPT_COST", 10),

		// ストア/キュー設定
		RedisURL: getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		// 監査ログ設定
		AuditQueueEnabled: getEnvAsBool("AUDIT_QUEUE_ENABLED", true),
		AuditHistoryLimit: getEnvAsInt("AUDIT_HISTORY_LIMIT", 1000),
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// 開発モードでは秘密鍵未設定を既定値で補う（署名鍵なしでの起動は許可しない）
	if config.TokenSecret == "" {
		config.TokenSecret = devTokenSecret
	}

	return config, nil
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.TokenTTLSeconds <= 0 {
		return fmt.Errorf("TOKEN_TTL_SECONDS must be positive")
	}

	// ローカル開発では秘密鍵は既定値で補われる
	// 本番環境では厳格にチェックする
	if c.GinMode == "release" {
		if c.TokenSecret == "" {
			return fmt.Errorf("TOKEN_SECRET is required in release mode")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in release mode")
		}
	}

	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します。
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt は環境変数を整数として取得します。
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します。
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
