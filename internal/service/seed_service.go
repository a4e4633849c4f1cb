package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
)

// ── 初始化数据业务错误 ──

var (
	ErrSeedYearInvalid = errors.New("学年编码无法解析出年份")
	ErrSeedPassword    = errors.New("管理员初始密码长度不能少于 8 位")
)

// SeedOptions 初始化参数
type SeedOptions struct {
	AdminSchoolID string
	AdminName     string
	AdminPassword string
	ClassLevels   []int
	SectionNames  []string
}

// DefaultSeedOptions 6-10 年级，每级 A/B/C 三个班
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{
		AdminSchoolID: "ADMIN-001",
		AdminName:     "System Administrator",
		ClassLevels:   []int{6, 7, 8, 9, 10},
		SectionNames:  []string{"A", "B", "C"},
	}
}

// SeedResult 初始化结果（仅统计本次新建的记录）
type SeedResult struct {
	AcademicYear    string
	SectionsCreated int
	AdminCreated    bool
}

// SeedService 初始化学年、班级与管理员账号，可重复执行
type SeedService interface {
	Seed(ctx context.Context, opts SeedOptions) (*SeedResult, error)
}

type seedService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSeedService 创建 SeedService 实例
func NewSeedService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) SeedService {
	return &seedService{cfg: cfg, repo: repo, logger: logger}
}

func (s *seedService) Seed(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	yearID := s.cfg.School.AcademicYear
	year, err := yearFromCode(yearID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AcademicYear.Upsert(ctx, &model.AcademicYear{
		ID:        yearID,
		YearName:  strconv.Itoa(year),
		StartDate: model.DateOf(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:   model.DateOf(time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)),
		IsActive:  true,
	}); err != nil {
		s.logger.Error("写入学年失败", zap.String("year", yearID), zap.Error(err))
		return nil, err
	}

	result := &SeedResult{AcademicYear: yearID}

	for _, level := range opts.ClassLevels {
		for _, name := range opts.SectionNames {
			_, err := s.repo.Section.FindByLevelAndName(ctx, yearID, level, name)
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error("查询班级失败", zap.Int("class_level", level), zap.String("section", name), zap.Error(err))
				return nil, err
			}
			if err := s.repo.Section.Create(ctx, &model.Section{
				AcademicYearID: yearID,
				ClassLevel:     level,
				SectionName:    name,
			}); err != nil {
				s.logger.Error("创建班级失败", zap.Int("class_level", level), zap.String("section", name), zap.Error(err))
				return nil, err
			}
			result.SectionsCreated++
		}
	}

	if opts.AdminSchoolID != "" {
		created, err := s.ensureAdmin(ctx, opts)
		if err != nil {
			return nil, err
		}
		result.AdminCreated = created
	}

	s.logger.Info("初始化数据完成",
		zap.String("year", yearID),
		zap.Int("sections_created", result.SectionsCreated),
		zap.Bool("admin_created", result.AdminCreated),
	)
	return result, nil
}

// ensureAdmin 管理员已存在时不修改其密码
func (s *seedService) ensureAdmin(ctx context.Context, opts SeedOptions) (bool, error) {
	_, err := s.repo.User.GetBySchoolID(ctx, opts.AdminSchoolID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询管理员失败", zap.Error(err))
		return false, err
	}
	if len(opts.AdminPassword) < 8 {
		return false, ErrSeedPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return false, err
	}

	admin := &model.User{
		FullName:     opts.AdminName,
		SchoolID:     opts.AdminSchoolID,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		s.logger.Error("创建管理员失败", zap.Error(err))
		return false, err
	}
	return true, nil
}

// yearFromCode 从 "YEAR-2025" 形式的编码中取出年份
func yearFromCode(code string) (int, error) {
	idx := strings.LastIndex(code, "-")
	year, err := strconv.Atoi(code[idx+1:])
	if err != nil || year < 2000 || year > 2100 {
		return 0, fmt.Errorf("%w: %q", ErrSeedYearInvalid, code)
	}
	return year, nil
}
