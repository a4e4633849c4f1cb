package service

import (
	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Academic   AcademicService
	Result     ResultService
	Routine    RoutineService
	Exam       ExamService
	Attendance AttendanceService
	Finance    FinanceService
	Export     ExportService
	Calendar   CalendarService
}

// NewService 创建 Service 聚合；cache 与 m 均可为 nil
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ResultCache,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	result := NewResultService(cfg, repo, cache, m, logger)
	routine := NewRoutineService(cfg, repo, m, logger)
	return &Service{
		Academic:   NewAcademicService(cfg, repo, logger),
		Result:     result,
		Routine:    routine,
		Exam:       NewExamService(cfg, repo, cache, m, logger),
		Attendance: NewAttendanceService(cfg, repo, logger),
		Finance:    NewFinanceService(cfg, repo, m, logger),
		Export:     NewExportService(cfg, repo, routine, result, logger),
		Calendar:   NewCalendarService(cfg, routine, logger),
	}
}
