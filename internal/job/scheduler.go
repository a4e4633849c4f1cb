package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
)

// OverdueSweeper 逾期账单扫描（由 FinanceService 实现）
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
}

// sweepTimeout 单次扫描的最长执行时间
const sweepTimeout = 2 * time.Minute

// Scheduler 后台定时任务
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// NewScheduler 按 finance.overdue_cron 注册逾期扫描任务，表达式按学校时区解释
func NewScheduler(cfg *config.Config, sweeper OverdueSweeper, logger *zap.Logger) (*Scheduler, error) {
	loc := time.UTC
	if cfg.School.Timezone != "" {
		l, err := time.LoadLocation(cfg.School.Timezone)
		if err != nil {
			return nil, fmt.Errorf("加载学校时区失败: %w", err)
		}
		loc = l
	}

	cl := cronLogger{s: logger.Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	if _, err := c.AddFunc(cfg.Finance.OverdueCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		RunOverdueSweep(ctx, sweeper, time.Now(), logger)
	}); err != nil {
		return nil, fmt.Errorf("注册逾期扫描任务失败 (%q): %w", cfg.Finance.OverdueCron, err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start 启动调度（非阻塞）
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("定时任务已启动", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度并等待正在执行的任务结束，最长等待到 ctx 截止
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("定时任务已停止")
	case <-ctx.Done():
		s.logger.Warn("等待定时任务结束超时")
	}
}

// RunOverdueSweep 执行一次逾期扫描，返回标记条数；失败只记录日志
func RunOverdueSweep(ctx context.Context, sweeper OverdueSweeper, now time.Time, logger *zap.Logger) int64 {
	n, err := sweeper.SweepOverdue(ctx, now)
	if err != nil {
		logger.Error("逾期扫描失败", zap.Error(err))
		return 0
	}
	logger.Debug("逾期扫描完成", zap.Int64("marked", n))
	return n
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
