// Package testutil 测试共用：内存 SQLite + 迁移好的表
package testutil

import (
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"carbuy-api/internal/core/database"
	"carbuy-api/internal/domain"
	"carbuy-api/pkg/utils"
)

// NewDB 单连接内存库；连接不能回收，否则库就没了
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
		LogWriter:    io.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// SeedUser 直接落库一个用户（密码已哈希）
func SeedUser(t testing.TB, db *gorm.DB, email, password string) *domain.User {
	t.Helper()
	h, err := utils.HashPassword(password)
	require.NoError(t, err)
	u := &domain.User{Email: email, Name: "seed " + email, PasswordHash: h, Phone: "600000000"}
	require.NoError(t, db.Create(u).Error)
	return u
}

// SeedListing 直接落库一条广告
func SeedListing(t testing.TB, db *gorm.DB, ownerID uint, brand, model string) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		Brand:       brand,
		Model:       model,
		Year:        2018,
		Price:       decimal.RequireFromString("12500.50"),
		Description: "seeded",
		ImageURL:    domain.DefaultImageURL,
		UserID:      ownerID,
	}
	require.NoError(t, db.Omit("User").Create(l).Error)
	return l
}
