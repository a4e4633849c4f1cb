package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/pkg/database"
	applogger "github.com/ahmed-sakil/asian-school/pkg/logger"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand 创建 schoolctl 根命令
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "schoolctl",
		Short:         "Asian School operator tool",
		Long:          "Operator commands for the school backend: migrations, seed data, dev tokens and maintenance jobs.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ./config/config.yaml)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

	return cmd
}

// env 一次命令执行所需的配置与日志
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(opts *RootOptions) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// openDB 连接数据库并确保表结构最新
func (e *env) openDB() (*gorm.DB, func(), error) {
	db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if err := database.Migrate(db, e.logger, model.All()...); err != nil {
		closeFn()
		return nil, nil, err
	}
	return db, closeFn, nil
}
