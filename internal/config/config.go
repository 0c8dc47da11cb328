// Package config は環境変数から設定を読み込み、アプリケーション全体で使用する設定を提供します。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// TenantConfig はテナントごとのバックエンドAPI接続情報を保持します。
type TenantConfig struct {
	APIBaseURL string // Strapi APIのベースURL
	APIToken   string // Bearer認証用APIトークン
}

// Config はアプリケーションの設定を保持する構造体です。
type Config struct {
	// サーバー設定
	Port    string // APIサーバーのポート番号
	GinMode string // Ginの実行モード (debug, release, test)

	// CORS設定
	CORSAllowedOrigins string // CORS許可オリジン（カンマ区切り）

	// ジョブ/キュー設定
	QueueRedisURL     string // Asynq用Redis接続URL
	WorkerConcurrency int    // 同時に処理するレポートジョブ数の上限
	JobExpireMinutes  int    // ジョブレコードの有効期限（分）
	JobTimeoutSeconds int    // 1ジョブ全体のタイムアウト（秒、0で無効）

	// レンダリングエンジン設定
	RendererBaseURL string // pdfmeレンダリングサービスのベースURL

	// テナント設定（起動時に一度だけ構築し、以降は読み取り専用）
	Tenants map[string]TenantConfig
}

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

		// ジョブ/キュー設定
		QueueRedisURL:     getEnv("QUEUE_REDIS_URL", "redis://127.0.0.1:6379/0"),
		WorkerConcurrency: getEnvAsInt("WORKER_CONCURRENCY", 10),
		JobExpireMinutes:  getEnvAsInt("JOB_EXPIRE_MINUTES", 60),
		JobTimeoutSeconds: getEnvAsInt("JOB_TIMEOUT_SECONDS", 0),

		// レンダリングエンジン設定
		RendererBaseURL: getEnv("RENDERER_BASE_URL", "http://127.0.0.1:3300"),

		// テナント設定
		Tenants: map[string]TenantConfig{
			"roofingcad": {
				APIBaseURL: getEnv("RFCAD_STRAPI_URL", ""),
				APIToken:   getEnv("RFCAD_STRAPI_API_TOKEN", ""),
			},
			"4hrsreport": {
				APIBaseURL: getEnv("HRSP4_STRAPI_URL", ""),
				APIToken:   getEnv("HRSP4_STRAPI_API_TOKEN", ""),
			},
		},
	}

	// 必須設定のバリデーション
	if err := config.Validate(); err != nil {
		return nil, err
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

// Tenant はテナントタグに対応する接続情報を返します。
// 未知のタグはエラーになります（ジョブ処理の最初に必ず解決すること）。
func (c *Config) Tenant(tag string) (TenantConfig, error) {
	tc, ok := c.Tenants[tag]
	if !ok {
		return TenantConfig{}, fmt.Errorf("unknown tenant: %q", tag)
	}
	return tc, nil
}

// Validate は設定の妥当性を検証します。
func (c *Config) Validate() error {
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive (got %d)", c.WorkerConcurrency)
	}

	// ローカル開発ではテナント設定は任意
	// 本番環境では厳格にチェックする想定
	if c.GinMode == "release" {
		if c.QueueRedisURL == "" {
			return fmt.Errorf("QUEUE_REDIS_URL is required in release mode")
		}
		if c.RendererBaseURL == "" {
			return fmt.Errorf("RENDERER_BASE_URL is required in release mode")
		}
		for tag, tc := range c.Tenants {
			if tc.APIBaseURL == "" || tc.APIToken == "" {
				return fmt.Errorf("tenant %q is missing base URL or token", tag)
			}
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
