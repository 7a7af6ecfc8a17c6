package db

import (
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect はローカルストア用の *gorm.DB を返す。
// 端末単体は sqlite ファイル。DATABASE_URL があれば店舗サーバーの postgres を使う。
func Connect() (*gorm.DB, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	}

	path := getenv("POS_DB_PATH", "pos.db")
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
