// Package idgen はローカル起点のミューテーションIDを作る。
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

// Prefix でサーバー採番のID（数値）と見分けられるようにする。
const Prefix = "loc_"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// New は loc_ + UUIDv7 を返す。時刻成分＋乱数成分で端末間の衝突はほぼ起きない。
func (g *Generator) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		//乱数枯渇時のフォールバック
		return Prefix + uuid.NewString()
	}
	return Prefix + id.String()
}

// IsLocal はローカル採番のIDかどうか。
func IsLocal(id string) bool {
	return strings.HasPrefix(id, Prefix)
}
