// Package database 负责创建数据库与 Redis 连接。
package database

import (
	"fmt"
	"time"

	"originality-go/internal/config"
	"originality-go/internal/model"
	"originality-go/pkg/log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 根据配置的驱动打开数据库连接。mysql 用于生产部署，sqlite 用于单机部署与测试。
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite 只允许单写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)           // 设置空闲连接池中连接的最大数量
		sqlDB.SetMaxOpenConns(100)          // 设置打开数据库连接的最大数量
		sqlDB.SetConnMaxLifetime(time.Hour) // 设置了连接可复用的最大时间
	}

	log.Infof("database connected successfully, driver: %s", cfg.Driver)
	return db, nil
}

// Migrate 创建或更新本服务使用的表结构。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.SourceDocument{},
		&model.ExtractedDocument{},
		&model.SimilarityReport{},
	)
}
