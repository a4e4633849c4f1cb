package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	School   SchoolConfig   `mapstructure:"school"`
	Finance  FinanceConfig  `mapstructure:"finance"`
	Cache    CacheConfig    `mapstructure:"cache"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port        int           `mapstructure:"port"`
	BodyLimitMB int           `mapstructure:"body_limit_mb"`
	CORS        CORSConfig    `mapstructure:"cors"`
	RateLimit   int           `mapstructure:"rate_limit"`  // 窗口内写请求上限
	RateWindow  time.Duration `mapstructure:"rate_window"` // 限流窗口
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig 数据库配置（postgres 为生产驱动，sqlite 用于本地与测试）
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	Path            string `mapstructure:"path"` // sqlite 文件路径
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchoolConfig 学校日历配置
type SchoolConfig struct {
	AcademicYear  string   `mapstructure:"academic_year"`
	SchoolDays    []string `mapstructure:"school_days"`
	PeriodsPerDay int      `mapstructure:"periods_per_day"`
	BreakPeriod   int      `mapstructure:"break_period"`
	PeriodTimes   []string `mapstructure:"period_times"` // "08:00-08:45"，按节次顺序
	Timezone      string   `mapstructure:"timezone"`
}

// IsSchoolDay 判断 day 是否为配置中的上课日
func (c *SchoolConfig) IsSchoolDay(day string) bool {
	for _, d := range c.SchoolDays {
		if d == day {
			return true
		}
	}
	return false
}

// PeriodTime 返回第 period 节的起止时间（HH:MM）
func (c *SchoolConfig) PeriodTime(period int) (start, end string, ok bool) {
	if period < 1 || period > len(c.PeriodTimes) {
		return "", "", false
	}
	parts := strings.SplitN(c.PeriodTimes[period-1], "-", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

// FinanceConfig 财务模块配置
type FinanceConfig struct {
	OverdueCron string `mapstructure:"overdue_cron"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	ResultTTL time.Duration `mapstructure:"result_ttl"`
}

// Load 从配置文件、.env 与环境变量加载配置
// 优先级：环境变量 > .env > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.body_limit_mb", 2)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.rate_window", "1m")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "asian_school")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Dhaka")
	v.SetDefault("db.path", "asian_school.db")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "") // 无默认值的键不会被 AutomaticEnv 解析
	v.SetDefault("auth.issuer", "asian-school")
	v.SetDefault("auth.access_token_ttl", "24h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("school.academic_year", "YEAR-2025")
	v.SetDefault("school.school_days", []string{"SATURDAY", "SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY"})
	v.SetDefault("school.periods_per_day", 8)
	v.SetDefault("school.break_period", 4)
	v.SetDefault("school.period_times", []string{
		"08:00-08:45", "08:45-09:30", "09:30-10:15", "10:15-10:45",
		"10:45-11:30", "11:30-12:15", "12:15-13:00", "13:00-13:45",
	})
	v.SetDefault("school.timezone", "Asia/Dhaka")

	v.SetDefault("finance.overdue_cron", "15 0 * * *")

	v.SetDefault("cache.result_ttl", "10m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── .env（可选，不存在时忽略）──
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取 .env 失败: %w", err)
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("SCHOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("配置校验失败: db.driver 仅支持 postgres | sqlite")
	}
	if c.School.AcademicYear == "" {
		return fmt.Errorf("配置校验失败: school.academic_year 不能为空")
	}
	if len(c.School.SchoolDays) == 0 {
		return fmt.Errorf("配置校验失败: school.school_days 不能为空")
	}
	if c.School.PeriodsPerDay <= 0 {
		return fmt.Errorf("配置校验失败: school.periods_per_day 必须大于 0")
	}
	if c.School.BreakPeriod < 1 || c.School.BreakPeriod > c.School.PeriodsPerDay {
		return fmt.Errorf("配置校验失败: school.break_period 必须在 1-%d 之间", c.School.PeriodsPerDay)
	}
	if len(c.School.PeriodTimes) < c.School.PeriodsPerDay {
		return fmt.Errorf("配置校验失败: school.period_times 数量少于 periods_per_day")
	}
	return nil
}
