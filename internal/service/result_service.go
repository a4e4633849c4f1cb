package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/grading"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
)

// ── 成绩模块业务错误 ──

var (
	ErrInvalidCategory = errors.New("考试类别无效")
)

// ResultCache 班级总分缓存（*redis.Client 实现）
// 写入携带读取时的版本号；失效即递增版本号，旧版本的写入不再可见
type ResultCache interface {
	GetResultTotals(ctx context.Context, sectionID, category string) (totals map[string]float64, version int64, ok bool, err error)
	SetResultTotals(ctx context.Context, sectionID, category string, version int64, totals map[string]float64, ttl time.Duration) error
	InvalidateResultTotals(ctx context.Context, sectionID, category string) error
}

// ResultService 成绩单与排名业务接口
type ResultService interface {
	// GetFinalResult 学生在某类别考试下的成绩单、总分、百分比与班内排名
	// 无成绩时返回 found=false（非错误）
	GetFinalResult(ctx context.Context, studentID, category string) (*dto.FinalResultResponse, error)
	// SectionStandings 班级某类别下的全部排名（导出使用）
	SectionStandings(ctx context.Context, sectionID, category string) ([]grading.Standing, error)
}

type resultService struct {
	cfg     *config.Config
	repo    *repository.Repository
	cache   ResultCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewResultService 创建 ResultService 实例；cache 为 nil 时每次直接计算
func NewResultService(cfg *config.Config, repo *repository.Repository, cache ResultCache, m *metrics.Metrics, logger *zap.Logger) ResultService {
	return &resultService{cfg: cfg, repo: repo, cache: cache, metrics: m, logger: logger}
}

// ════════════════════════════════════════════════════════════
// GetFinalResult
// ════════════════════════════════════════════════════════════
//
// 1. 校验学生并解析当前学年班级（未选班直接报错，不静默）
// 2. 学生本班本类别成绩 → 单科等级 + 总分 + 百分比
// 3. 全班同类别总分 → 竞争排名（同分同名次）

func (s *resultService) GetFinalResult(ctx context.Context, studentID, category string) (*dto.FinalResultResponse, error) {
	if category == "" {
		category = model.CategoryFinalExam
	}
	if !model.IsExamCategory(category) {
		return nil, ErrInvalidCategory
	}

	student, err := findUserWithRole(ctx, s.repo, studentID, model.RoleStudent, ErrStudentNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	section, err := activeSection(ctx, s.repo, student.ID, s.cfg.School.AcademicYear, s.logger)
	if err != nil {
		return nil, err
	}

	marks, err := s.repo.Mark.ListStudentMarks(ctx, student.ID, section.ID, category)
	if err != nil {
		s.logger.Error("查询学生成绩失败", zap.String("student_id", student.ID), zap.Error(err))
		return nil, err
	}

	resp := &dto.FinalResultResponse{Category: category, Section: section.Label()}
	if len(marks) == 0 {
		return resp, nil
	}

	// ── 单科成绩 ──
	var maxTotal int
	obtained := make([]float64, 0, len(marks))
	report := make([]dto.SubjectResult, 0, len(marks))
	for _, m := range marks {
		total := 0
		subject := ""
		if m.Assessment != nil {
			total = m.Assessment.TotalMarks
			if m.Assessment.SubjectClass != nil {
				subject = m.Assessment.SubjectClass.CourseName()
			}
		}
		obtained = append(obtained, m.ObtainedMark)
		maxTotal += total
		report = append(report, dto.SubjectResult{
			Subject:  subject,
			Total:    total,
			Obtained: m.ObtainedMark,
			Grade:    grading.GradeFor(m.ObtainedMark, float64(total)),
		})
	}

	studentTotal := grading.Sum(obtained...)

	// ── 班内排名 ──
	totals, err := s.cohortTotals(ctx, section.ID, category)
	if err != nil {
		return nil, err
	}
	// 缓存可能早于本次读取，以实时总分为准
	totals[student.ID] = studentTotal

	resp.Found = true
	resp.Report = report
	resp.Summary = &dto.ResultSummary{
		GrandTotal: grading.Round(studentTotal, 2),
		MaxTotal:   maxTotal,
		Percentage: grading.Percentage(studentTotal, float64(maxTotal)),
		Rank:       grading.Rank(totals, studentTotal),
		CohortSize: len(totals),
	}
	return resp, nil
}

func (s *resultService) SectionStandings(ctx context.Context, sectionID, category string) ([]grading.Standing, error) {
	totals, err := s.cohortTotals(ctx, sectionID, category)
	if err != nil {
		return nil, err
	}
	return grading.Standings(totals), nil
}

// cohortTotals 班级某类别下每个学生的总分，优先读缓存
func (s *resultService) cohortTotals(ctx context.Context, sectionID, category string) (map[string]float64, error) {
	var version int64
	cacheable := false
	if s.cache != nil {
		totals, v, ok, err := s.cache.GetResultTotals(ctx, sectionID, category)
		switch {
		case err != nil:
			s.logger.Warn("读取总分缓存失败，降级为直接计算", zap.String("section_id", sectionID), zap.Error(err))
		case ok:
			s.countCache("hit")
			return totals, nil
		default:
			version, cacheable = v, true
		}
		s.countCache("miss")
	}

	marks, err := s.repo.Mark.ListSectionMarks(ctx, sectionID, category)
	if err != nil {
		s.logger.Error("查询班级成绩失败", zap.String("section_id", sectionID), zap.Error(err))
		return nil, err
	}
	entries := make([]grading.Entry, len(marks))
	for i, m := range marks {
		entries[i] = grading.Entry{StudentID: m.StudentID, Obtained: m.ObtainedMark}
	}
	totals := grading.SumByStudent(entries)

	if cacheable {
		if err := s.cache.SetResultTotals(ctx, sectionID, category, version, totals, s.cfg.Cache.ResultTTL); err != nil {
			s.logger.Warn("写入总分缓存失败", zap.String("section_id", sectionID), zap.Error(err))
		}
	}
	return totals, nil
}

func (s *resultService) countCache(outcome string) {
	if s.metrics != nil {
		s.metrics.ResultCacheLookup.WithLabelValues(outcome).Inc()
	}
}
