// Package app 两个入口共用的依赖装配：日志、数据库、缓存、服务
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"carbuy-api/internal/core/cache"
	"carbuy-api/internal/core/config"
	"carbuy-api/internal/core/database"
	"carbuy-api/internal/core/logger"
	"carbuy-api/internal/service"
)

type Deps struct {
	Log      *zap.Logger
	DB       *gorm.DB
	Cache    *cache.Cache // redis 未启用时为 nil
	Services *service.Services
}

// Build 失败时已打开的资源会被关闭
func Build(cfg *config.Config) (*Deps, func(), error) {
	log, logCleanup := logger.NewFromOptions(logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Rotate: logger.FileRotate{
			Enable:     cfg.Log.File != "",
			Filename:   cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		},
	})
	undoStd := logger.RedirectStdLog(log, zapcore.InfoLevel)
	closers := []func(){logCleanup, undoStd}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		PrepareStmt:        cfg.DB.PrepareStmt,
		LogWriter:          logger.ToWriter(log.Named("gorm"), zapcore.WarnLevel),
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	closers = append(closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("automigrate: %w", err)
		}
		log.Info("automigrate done")
	}

	opts := service.ListingOptions{
		EnforceOwnership: cfg.Listing.EnforceOwnership,
		CacheTTL:         time.Duration(cfg.Listing.CacheTTLSec) * time.Second,
	}
	var rc *cache.Cache
	if cfg.Redis.Enabled {
		rc = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			_ = rc.Close()
			cleanup()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		closers = append(closers, func() { _ = rc.Close() })
		opts.Cache = rc
		log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	return &Deps{
		Log:      log,
		DB:       db,
		Cache:    rc,
		Services: service.New(db, opts, log),
	}, cleanup, nil
}

// MustBuild 启动阶段用，失败直接退出
func MustBuild(cfg *config.Config) (*Deps, func()) {
	d, cleanup, err := Build(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bootstrap failed:", err)
		os.Exit(1)
	}
	return d, cleanup
}
