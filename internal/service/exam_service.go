package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/grading"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
)

// ── 考试模块业务错误 ──

var (
	ErrAssessmentNotFound  = errors.New("考试不存在")
	ErrInvalidDate         = errors.New("日期格式无效")
	ErrMarkOutOfRange      = errors.New("成绩超出范围")
	ErrDuplicateStudent    = errors.New("同一学生重复提交")
	ErrStudentNotInSection = errors.New("学生不属于该考试所在班级")
)

// ExamService 考试与成绩录入业务接口
type ExamService interface {
	CreateAssessment(ctx context.Context, req *dto.CreateAssessmentRequest) (*dto.AssessmentResponse, error)
	// ListAssessments 某门课的全部考试及录入进度
	ListAssessments(ctx context.Context, subjectClassID string) ([]dto.AssessmentResponse, error)
	// GetMarksSheet 班级学生名单（按学号）合并已录入成绩
	GetMarksSheet(ctx context.Context, assessmentID string) (*dto.MarksSheetResponse, error)
	// SubmitMarks 批量提交成绩，全部校验通过后原子写入
	SubmitMarks(ctx context.Context, req *dto.SubmitMarksRequest) (*dto.SubmitMarksResponse, error)
	// GetLiveMarks 学生某门课的历次成绩，最近的在前
	GetLiveMarks(ctx context.Context, studentID, subjectClassID string) ([]dto.LiveMarkResponse, error)
}

type examService struct {
	cfg     *config.Config
	repo    *repository.Repository
	cache   ResultCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewExamService 创建 ExamService 实例
func NewExamService(cfg *config.Config, repo *repository.Repository, cache ResultCache, m *metrics.Metrics, logger *zap.Logger) ExamService {
	return &examService{cfg: cfg, repo: repo, cache: cache, metrics: m, logger: logger}
}

func (s *examService) CreateAssessment(ctx context.Context, req *dto.CreateAssessmentRequest) (*dto.AssessmentResponse, error) {
	if !model.IsExamCategory(req.Category) {
		return nil, ErrInvalidCategory
	}
	examDate, err := time.Parse(dto.DateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	sc, err := s.getSubjectClass(ctx, req.SubjectClassID)
	if err != nil {
		return nil, err
	}

	assessment := &model.Assessment{
		SubjectClassID: sc.ID,
		Title:          req.Title,
		Category:       req.Category,
		TotalMarks:     req.TotalMarks,
		ExamDate:       model.DateOf(examDate),
	}
	if err := s.repo.Assessment.Create(ctx, assessment); err != nil {
		s.logger.Error("创建考试失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("考试已创建",
		zap.String("assessment_id", assessment.ID),
		zap.String("subject_class_id", sc.ID),
		zap.String("category", assessment.Category),
	)
	resp := toAssessmentResponse(assessment)
	return &resp, nil
}

func (s *examService) ListAssessments(ctx context.Context, subjectClassID string) ([]dto.AssessmentResponse, error) {
	sc, err := s.getSubjectClass(ctx, subjectClassID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.Assessment.ListBySubjectClass(ctx, sc.ID)
	if err != nil {
		s.logger.Error("查询考试列表失败", zap.String("subject_class_id", sc.ID), zap.Error(err))
		return nil, err
	}
	ids := make([]string, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}
	counts, err := s.repo.Assessment.CountMarks(ctx, ids)
	if err != nil {
		s.logger.Error("统计成绩录入数失败", zap.Error(err))
		return nil, err
	}
	students, err := s.repo.Enrollment.CountBySection(ctx, sc.SectionID)
	if err != nil {
		s.logger.Error("统计班级人数失败", zap.String("section_id", sc.SectionID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AssessmentResponse, 0, len(list))
	for i := range list {
		resp := toAssessmentResponse(&list[i])
		resp.MarkedCount = counts[list[i].ID]
		resp.StudentCount = students
		result = append(result, resp)
	}
	return result, nil
}

func (s *examService) GetMarksSheet(ctx context.Context, assessmentID string) (*dto.MarksSheetResponse, error) {
	assessment, err := s.getAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	sectionID := assessment.SubjectClass.SectionID

	enrollments, err := s.repo.Enrollment.ListBySection(ctx, sectionID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("section_id", sectionID), zap.Error(err))
		return nil, err
	}
	marks, err := s.repo.Mark.ListByAssessment(ctx, assessment.ID)
	if err != nil {
		s.logger.Error("查询考试成绩失败", zap.String("assessment_id", assessment.ID), zap.Error(err))
		return nil, err
	}
	obtained := make(map[string]float64, len(marks))
	for _, m := range marks {
		obtained[m.StudentID] = m.ObtainedMark
	}

	sheet := &dto.MarksSheetResponse{
		Assessment: toAssessmentResponse(assessment),
		Subject:    assessment.SubjectClass.CourseName(),
		Students:   make([]dto.MarksSheetRow, 0, len(enrollments)),
	}
	if assessment.SubjectClass.Section != nil {
		sheet.Section = assessment.SubjectClass.Section.Label()
	}
	for _, e := range enrollments {
		row := dto.MarksSheetRow{StudentID: e.StudentID, RollNo: e.RollNo}
		if e.Student != nil {
			row.SchoolID = e.Student.SchoolID
			row.FullName = e.Student.FullName
		}
		if v, ok := obtained[e.StudentID]; ok {
			v := v
			row.ObtainedMark = &v
		}
		sheet.Students = append(sheet.Students, row)
	}
	sheet.Assessment.MarkedCount = int64(len(marks))
	sheet.Assessment.StudentCount = int64(len(enrollments))
	return sheet, nil
}

// ════════════════════════════════════════════════════════════
// SubmitMarks
// ════════════════════════════════════════════════════════════
//
// 校验：分数在 0..满分 之间、学生属于该班、同一学生不重复。
// 任一行不合法则整批拒绝，不做部分写入。

func (s *examService) SubmitMarks(ctx context.Context, req *dto.SubmitMarksRequest) (*dto.SubmitMarksResponse, error) {
	assessment, err := s.getAssessment(ctx, req.AssessmentID)
	if err != nil {
		return nil, err
	}
	sectionID := assessment.SubjectClass.SectionID

	enrollments, err := s.repo.Enrollment.ListBySection(ctx, sectionID)
	if err != nil {
		s.logger.Error("查询班级学生失败", zap.String("section_id", sectionID), zap.Error(err))
		return nil, err
	}
	enrolled := make(map[string]struct{}, len(enrollments))
	for _, e := range enrollments {
		enrolled[e.StudentID] = struct{}{}
	}

	seen := make(map[string]struct{}, len(req.Marks))
	marks := make([]model.Mark, 0, len(req.Marks))
	for _, entry := range req.Marks {
		if _, dup := seen[entry.StudentID]; dup {
			return nil, ErrDuplicateStudent
		}
		seen[entry.StudentID] = struct{}{}

		if _, ok := enrolled[entry.StudentID]; !ok {
			return nil, ErrStudentNotInSection
		}
		if entry.ObtainedMark == nil {
			return nil, fmt.Errorf("%w: missing mark for student %s", ErrMarkOutOfRange, entry.StudentID)
		}
		v := *entry.ObtainedMark
		if v < 0 || v > float64(assessment.TotalMarks) {
			return nil, fmt.Errorf("%w: mark %g must be between 0 and %d", ErrMarkOutOfRange, v, assessment.TotalMarks)
		}
		marks = append(marks, model.Mark{
			AssessmentID: assessment.ID,
			StudentID:    entry.StudentID,
			ObtainedMark: v,
		})
	}

	if err := s.repo.Mark.ApplyBatch(ctx, marks); err != nil {
		s.logger.Error("批量保存成绩失败",
			zap.String("assessment_id", assessment.ID),
			zap.Int("count", len(marks)),
			zap.Error(err),
		)
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateResultTotals(ctx, sectionID, assessment.Category); err != nil {
			s.logger.Warn("清除总分缓存失败", zap.String("section_id", sectionID), zap.Error(err))
		}
	}
	if s.metrics != nil {
		s.metrics.MarksSubmitted.Add(float64(len(marks)))
	}

	s.logger.Info("成绩已提交",
		zap.String("assessment_id", assessment.ID),
		zap.Int("count", len(marks)),
	)
	return &dto.SubmitMarksResponse{AssessmentID: assessment.ID, Saved: len(marks)}, nil
}

func (s *examService) GetLiveMarks(ctx context.Context, studentID, subjectClassID string) ([]dto.LiveMarkResponse, error) {
	student, err := findUserWithRole(ctx, s.repo, studentID, model.RoleStudent, ErrStudentNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	sc, err := s.getSubjectClass(ctx, subjectClassID)
	if err != nil {
		return nil, err
	}

	marks, err := s.repo.Mark.ListByStudentSubject(ctx, student.ID, sc.ID)
	if err != nil {
		s.logger.Error("查询单科成绩失败", zap.String("student_id", student.ID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.LiveMarkResponse, 0, len(marks))
	for _, m := range marks {
		if m.Assessment == nil {
			continue
		}
		total := float64(m.Assessment.TotalMarks)
		result = append(result, dto.LiveMarkResponse{
			AssessmentID: m.AssessmentID,
			Title:        m.Assessment.Title,
			Category:     m.Assessment.Category,
			ExamDate:     model.FormatDate(m.Assessment.ExamDate),
			TotalMarks:   m.Assessment.TotalMarks,
			Obtained:     m.ObtainedMark,
			Percentage:   grading.Percentage(m.ObtainedMark, total),
			Grade:        grading.GradeFor(m.ObtainedMark, total),
		})
	}
	return result, nil
}

// ── 内部辅助 ──

func (s *examService) getSubjectClass(ctx context.Context, id string) (*model.SubjectClass, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSubjectClassNotFound
	}
	sc, err := s.repo.SubjectClass.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectClassNotFound
		}
		s.logger.Error("查询授课班级失败", zap.String("subject_class_id", id), zap.Error(err))
		return nil, err
	}
	return sc, nil
}

func (s *examService) getAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAssessmentNotFound
	}
	assessment, err := s.repo.Assessment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssessmentNotFound
		}
		s.logger.Error("查询考试失败", zap.String("assessment_id", id), zap.Error(err))
		return nil, err
	}
	if assessment.SubjectClass == nil {
		return nil, ErrSubjectClassNotFound
	}
	return assessment, nil
}

func toAssessmentResponse(a *model.Assessment) dto.AssessmentResponse {
	return dto.AssessmentResponse{
		ID:             a.ID,
		SubjectClassID: a.SubjectClassID,
		Title:          a.Title,
		Category:       a.Category,
		TotalMarks:     a.TotalMarks,
		ExamDate:       model.FormatDate(a.ExamDate),
	}
}
