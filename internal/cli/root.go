// Package cli 实现 lecturectl 运维命令：数据库迁移与初始账号
package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"lecture-sync/config"
	"lecture-sync/pkg/database"
	applogger "lecture-sync/pkg/logger"
)

var flagConfig string

// env 子命令共享的运行环境
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

func (e *env) close() {
	if e.sqlDB != nil {
		e.sqlDB.Close()
	}
	e.logger.Sync()
}

// NewRootCmd 创建 lecturectl 根命令
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "lecturectl",
		Short:        "lecture-sync 运维工具",
		Long:         "lecturectl 用于执行数据库迁移并写入默认的管理员与讲师账号。",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")

	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
	)

	return root
}

// openEnv 加载配置并连接数据库
func openEnv() (*env, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	return &env{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}
