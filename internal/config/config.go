package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	RemoteBaseURL string        // 本部バックエンドのURL
	RemoteTimeout time.Duration // リモートRPCの上限時間
	ProbeInterval time.Duration // オンライン判定のキャッシュ時間
	RestaurantID  int64         // この端末の店舗ID

	JWTSecret      string // JWT署名シークレット
	StaffPINHash   string // スタッフPINのbcryptハッシュ
	ManagerPINHash string // マネージャーPINのbcryptハッシュ（任意）

	GoEnv string // dev/prod
}

// Loadは環境変数
func Load() (Config, error) {
	restaurantID, err := mustAtoi64("RESTAURANT_ID")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		RemoteBaseURL: os.Getenv("REMOTE_BASE_URL"),
		RemoteTimeout: durationEnv("REMOTE_TIMEOUT_MS", 5000),
		ProbeInterval: durationEnv("PROBE_INTERVAL_MS", 3000),
		RestaurantID:  restaurantID,

		JWTSecret:      os.Getenv("JWT_SECRET"),
		StaffPINHash:   os.Getenv("STAFF_PIN_HASH"),
		ManagerPINHash: os.Getenv("MANAGER_PIN_HASH"),

		GoEnv: os.Getenv("GO_ENV"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.RemoteBaseURL == "" {
		return Config{}, fmt.Errorf("REMOTE_BASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StaffPINHash == "" {
		return Config{}, fmt.Errorf("STAFF_PIN_HASH is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}

func mustAtoi64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationEnv(key string, defMillis int64) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(defMillis) * time.Millisecond
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return time.Duration(defMillis) * time.Millisecond
	}
	return time.Duration(i) * time.Millisecond
}
