package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
)

// Client Redis 客户端封装
// 用于 Token 黑名单、写接口限流、成绩总分缓存
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// ── Token 黑名单 ──

const blacklistPrefix = "token:blacklist:"

// BlacklistToken 将 JWT ID 加入黑名单，TTL 与 Token 剩余有效期一致
func (c *Client) BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // Token 已过期，无需加入黑名单
	}
	return c.rdb.Set(ctx, blacklistPrefix+jti, "1", ttl).Err()
}

// IsBlacklisted 检查 JWT ID 是否在黑名单中
func (c *Client) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ── 滑动窗口限流 ──

// CheckRateLimit 滑动窗口计数，返回本次请求是否放行
// key 由调用方拼接（如 "rate_limit:IP:路由"）；窗口内最多 limit 次
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	redisKey := key
	minScore := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", minScore)
	card := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	if card.Val() >= int64(limit) {
		return false, nil
	}

	pipe = c.rdb.TxPipeline()
	pipe.ZAdd(ctx, redisKey, goredis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// ── 成绩总分缓存 ──
//
// 每个 (班级, 类别) 维护一个版本号，总分按版本号分键存放。
// 成绩提交后递增版本号，提交前读取的总分只会写入旧版本的键。

const (
	resultTotalsPrefix  = "result:totals:"
	resultVersionPrefix = "result:version:"
)

func resultVersionKey(sectionID, category string) string {
	return resultVersionPrefix + sectionID + ":" + category
}

func resultTotalsKey(sectionID, category string, version int64) string {
	return resultTotalsPrefix + sectionID + ":" + category + ":v" + strconv.FormatInt(version, 10)
}

// GetResultTotals 读取 (班级, 类别) 当前版本的学生总分；未命中时 ok 为 false，version 仍有效
func (c *Client) GetResultTotals(ctx context.Context, sectionID, category string) (map[string]float64, int64, bool, error) {
	version, err := c.rdb.Get(ctx, resultVersionKey(sectionID, category)).Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, 0, false, err
	}

	raw, err := c.rdb.Get(ctx, resultTotalsKey(sectionID, category, version)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, version, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	totals := make(map[string]float64)
	if err := json.Unmarshal(raw, &totals); err != nil {
		return nil, 0, false, err
	}
	return totals, version, true, nil
}

// SetResultTotals 按读取时的版本号写入学生总分缓存
func (c *Client) SetResultTotals(ctx context.Context, sectionID, category string, version int64, totals map[string]float64, ttl time.Duration) error {
	raw, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, resultTotalsKey(sectionID, category, version), raw, ttl).Err()
}

// InvalidateResultTotals 递增 (班级, 类别) 的版本号（成绩提交后调用）
func (c *Client) InvalidateResultTotals(ctx context.Context, sectionID, category string) error {
	return c.rdb.Incr(ctx, resultVersionKey(sectionID, category)).Err()
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
