package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/grading"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
)

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// GetSheet 班级某日的点名表，未点名的学生 marked=false
	GetSheet(ctx context.Context, classLevel int, sectionName, date string) (*dto.AttendanceSheetResponse, error)
	// Submit 全班某日考勤，原子写入
	Submit(ctx context.Context, req *dto.SubmitAttendanceRequest) (int, error)
	GetStudentStats(ctx context.Context, studentID string) (*dto.AttendanceStatsResponse, error)
	// GetMonthlyReport 月度考勤，工作日数为该月有点名记录的日期数
	GetMonthlyReport(ctx context.Context, q *dto.MonthlyReportQuery) (*dto.MonthlyReportResponse, error)
}

type attendanceService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{cfg: cfg, repo: repo, logger: logger}
}

func (s *attendanceService) GetSheet(ctx context.Context, classLevel int, sectionName, date string) (*dto.AttendanceSheetResponse, error) {
	day, err := time.Parse(dto.DateLayout, date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	section, err := findSection(ctx, s.repo, s.cfg.School.AcademicYear, classLevel, sectionName, s.logger)
	if err != nil {
		return nil, err
	}

	enrollments, err := s.repo.Enrollment.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListBySectionDate(ctx, section.ID, model.DateOf(day))
	if err != nil {
		s.logger.Error("查询考勤失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}
	present := make(map[string]bool, len(records))
	for _, r := range records {
		present[r.StudentID] = r.IsPresent
	}

	sheet := &dto.AttendanceSheetResponse{
		SectionID: section.ID,
		Section:   section.Label(),
		Date:      date,
		Students:  make([]dto.AttendanceSheetRow, 0, len(enrollments)),
	}
	for _, e := range enrollments {
		row := dto.AttendanceSheetRow{StudentID: e.StudentID, RollNo: e.RollNo}
		if e.Student != nil {
			row.SchoolID = e.Student.SchoolID
			row.FullName = e.Student.FullName
		}
		row.IsPresent, row.Marked = present[e.StudentID]
		sheet.Students = append(sheet.Students, row)
	}
	return sheet, nil
}

func (s *attendanceService) Submit(ctx context.Context, req *dto.SubmitAttendanceRequest) (int, error) {
	day, err := time.Parse(dto.DateLayout, req.Date)
	if err != nil {
		return 0, ErrInvalidDate
	}
	section, err := getSection(ctx, s.repo, req.SectionID, s.logger)
	if err != nil {
		return 0, err
	}

	enrollments, err := s.repo.Enrollment.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("section_id", section.ID), zap.Error(err))
		return 0, err
	}
	enrolled := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.StudentID] = struct{}{}
	}

	date := model.DateOf(day)
	seen := make(map[string]struct{}, len(req.Records))
	records := make([]model.DailyAttendance, 0, len(req.Records))
	for _, r := range req.Records {
		if _, dup := seen[r.StudentID]; dup {
			return 0, ErrDuplicateStudent
		}
		seen[r.StudentID] = struct{}{}
		if _, ok := enrolled[r.StudentID]; !ok {
			return 0, ErrStudentNotInSection
		}
		records = append(records, model.DailyAttendance{
			StudentID: r.StudentID,
			SectionID: section.ID,
			Date:      date,
			IsPresent: r.IsPresent,
		})
	}

	if err := s.repo.Attendance.ApplyBatch(ctx, records); err != nil {
		s.logger.Error("保存考勤失败",
			zap.String("section_id", section.ID),
			zap.String("date", req.Date),
			zap.Error(err),
		)
		return 0, err
	}

	s.logger.Info("考勤已提交",
		zap.String("section", section.Label()),
		zap.String("date", req.Date),
		zap.Int("count", len(records)),
	)
	return len(records), nil
}

func (s *attendanceService) GetStudentStats(ctx context.Context, studentID string) (*dto.AttendanceStatsResponse, error) {
	student, err := findUserWithRole(ctx, s.repo, studentID, model.RoleStudent, ErrStudentNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	total, present, err := s.repo.Attendance.CountByStudent(ctx, student.ID)
	if err != nil {
		s.logger.Error("统计出勤失败", zap.String("student_id", student.ID), zap.Error(err))
		return nil, err
	}

	return &dto.AttendanceStatsResponse{
		StudentID:   student.ID,
		TotalDays:   total,
		PresentDays: present,
		AbsentDays:  total - present,
		Percentage:  attendanceRate(present, total),
	}, nil
}

func (s *attendanceService) GetMonthlyReport(ctx context.Context, q *dto.MonthlyReportQuery) (*dto.MonthlyReportResponse, error) {
	if q.Month < 1 || q.Month > 12 {
		return nil, ErrInvalidDate
	}
	section, err := findSection(ctx, s.repo, s.cfg.School.AcademicYear, q.ClassLevel, q.SectionName, s.logger)
	if err != nil {
		return nil, err
	}

	first := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	enrollments, err := s.repo.Enrollment.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListBySectionRange(ctx, section.ID, model.DateOf(first), model.DateOf(last))
	if err != nil {
		s.logger.Error("查询月度考勤失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}

	days := make(map[string]struct{})
	presentBy := make(map[string]int)
	absentBy := make(map[string]int)
	for _, r := range records {
		days[model.FormatDate(r.Date)] = struct{}{}
		if r.IsPresent {
			presentBy[r.StudentID]++
		} else {
			absentBy[r.StudentID]++
		}
	}

	report := &dto.MonthlyReportResponse{
		SectionID:   section.ID,
		Section:     section.Label(),
		Year:        q.Year,
		Month:       q.Month,
		WorkingDays: len(days),
		Students:    make([]dto.MonthlyReportRow, 0, len(enrollments)),
	}
	for _, e := range enrollments {
		row := dto.MonthlyReportRow{
			StudentID: e.StudentID,
			Present:   presentBy[e.StudentID],
			Absent:    absentBy[e.StudentID],
		}
		if e.Student != nil {
			row.SchoolID = e.Student.SchoolID
			row.FullName = e.Student.FullName
		}
		row.Percentage = attendanceRate(int64(row.Present), int64(len(days)))
		report.Students = append(report.Students, row)
	}
	return report, nil
}

// attendanceRate 出勤率，保留 1 位小数；无记录时为 0
func attendanceRate(present, total int64) float64 {
	if total == 0 {
		return 0
	}
	return grading.Round(float64(present)/float64(total)*100, 1)
}
