package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
)

// ── 教务模块业务错误（多个模块共用） ──

var (
	ErrStudentNotFound     = errors.New("学生不存在")
	ErrTeacherNotFound     = errors.New("教师不存在")
	ErrNotEnrolled         = errors.New("学生在当前学年未选班")
	ErrSectionNotFound     = errors.New("当前学年不存在该班级")
	ErrCourseNotFound      = errors.New("课程不存在")
	ErrCourseLevelMismatch = errors.New("课程与班级年级不符")
)

// AcademicService 授课分配业务接口
type AcademicService interface {
	// AssignSubject 为班级分配课程及任课教师（按 班级+课程 upsert）
	AssignSubject(ctx context.Context, req *dto.AssignSubjectRequest) (*dto.SubjectClassResponse, error)
	// ListAssignments 当前学年全部授课分配
	ListAssignments(ctx context.Context) ([]dto.SubjectClassResponse, error)
	// ListTeacherAssignments 教师的全部授课
	ListTeacherAssignments(ctx context.Context, teacherID string) ([]dto.SubjectClassResponse, error)
	// ListStudentSubjects 学生所在班级的全部课程
	ListStudentSubjects(ctx context.Context, studentID string) ([]dto.SubjectClassResponse, error)
}

type academicService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAcademicService 创建 AcademicService 实例
func NewAcademicService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) AcademicService {
	return &academicService{cfg: cfg, repo: repo, logger: logger}
}

func (s *academicService) AssignSubject(ctx context.Context, req *dto.AssignSubjectRequest) (*dto.SubjectClassResponse, error) {
	section, err := findSection(ctx, s.repo, s.cfg.School.AcademicYear, req.ClassLevel, req.SectionName, s.logger)
	if err != nil {
		return nil, err
	}

	course, err := s.repo.Course.GetByID(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", req.CourseID), zap.Error(err))
		return nil, err
	}
	if course.ClassLevel != section.ClassLevel {
		return nil, ErrCourseLevelMismatch
	}

	teacher, err := findUserWithRole(ctx, s.repo, req.TeacherID, model.RoleTeacher, ErrTeacherNotFound, s.logger)
	if err != nil {
		return nil, err
	}

	// 已排课的授课更换教师时，新教师不得在同一时段出现在其他班级
	sc := &model.SubjectClass{SectionID: section.ID, CourseID: course.ID, TeacherID: &teacher.ID}
	err = s.repo.SubjectClass.UpsertWithSlots(ctx, sc, func(tx repository.RoutineSlotRepository, slots []model.RoutineSlot) error {
		for _, slot := range slots {
			busy, err := tx.FindTeacherConflict(ctx, teacher.ID, slot.Day, slot.Period, slot.SectionID)
			if err != nil {
				return err
			}
			if busy != nil {
				return newTeacherConflict(teacher.ID, busy)
			}
		}
		return nil
	})
	if err != nil {
		var conflict *TeacherConflictError
		if errors.As(err, &conflict) {
			s.logger.Info("授课分配冲突",
				zap.String("teacher_id", teacher.ID),
				zap.String("day", conflict.Day),
				zap.Int("period", conflict.Period),
				zap.String("busy_section", conflict.SectionLabel),
			)
			return nil, conflict
		}
		s.logger.Error("保存授课分配失败", zap.Error(err))
		return nil, err
	}
	sc.Section, sc.Course, sc.Teacher = section, course, teacher

	s.logger.Info("授课分配已保存",
		zap.String("section", section.Label()),
		zap.String("course", course.Code),
		zap.String("teacher_id", teacher.ID),
	)
	resp := toSubjectClassResponse(sc)
	return &resp, nil
}

func (s *academicService) ListAssignments(ctx context.Context) ([]dto.SubjectClassResponse, error) {
	list, err := s.repo.SubjectClass.ListByYear(ctx, s.cfg.School.AcademicYear)
	if err != nil {
		s.logger.Error("查询授课分配失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubjectClassResponse, 0, len(list))
	for i := range list {
		result = append(result, toSubjectClassResponse(&list[i]))
	}
	return result, nil
}

func (s *academicService) ListTeacherAssignments(ctx context.Context, teacherID string) ([]dto.SubjectClassResponse, error) {
	teacher, err := findUserWithRole(ctx, s.repo, teacherID, model.RoleTeacher, ErrTeacherNotFound, s.logger)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.SubjectClass.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		s.logger.Error("查询教师授课失败", zap.String("teacher_id", teacher.ID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubjectClassResponse, 0, len(list))
	for i := range list {
		list[i].Teacher = teacher
		result = append(result, toSubjectClassResponse(&list[i]))
	}
	return result, nil
}

func (s *academicService) ListStudentSubjects(ctx context.Context, studentID string) ([]dto.SubjectClassResponse, error) {
	student, err := findUserWithRole(ctx, s.repo, studentID, model.RoleStudent, ErrStudentNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	section, err := activeSection(ctx, s.repo, student.ID, s.cfg.School.AcademicYear, s.logger)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.SubjectClass.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级课程失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SubjectClassResponse, 0, len(list))
	for i := range list {
		list[i].Section = section
		result = append(result, toSubjectClassResponse(&list[i]))
	}
	return result, nil
}

// ── 共用查询 ──

// findUserWithRole 按 ID 查询指定角色的用户；非法 ID、不存在或角色不符均返回 notFound
func findUserWithRole(ctx context.Context, repo *repository.Repository, id, role string, notFound error, logger *zap.Logger) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound
	}
	user, err := repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		logger.Error("查询用户失败", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}
	if user.Role != role {
		return nil, notFound
	}
	return user, nil
}

// activeSection 学生在当前学年的班级
func activeSection(ctx context.Context, repo *repository.Repository, studentID, yearID string, logger *zap.Logger) (*model.Section, error) {
	enrollment, err := repo.Enrollment.GetActiveByStudent(ctx, studentID, yearID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		logger.Error("查询选班失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, err
	}
	if enrollment.Section == nil {
		section, err := repo.Section.GetByID(ctx, enrollment.SectionID)
		if err != nil {
			logger.Error("查询班级失败", zap.String("section_id", enrollment.SectionID), zap.Error(err))
			return nil, err
		}
		return section, nil
	}
	return enrollment.Section, nil
}

// findSection 按 (年级, 班名) 查询当前学年的班级
func findSection(ctx context.Context, repo *repository.Repository, yearID string, classLevel int, sectionName string, logger *zap.Logger) (*model.Section, error) {
	section, err := repo.Section.FindByLevelAndName(ctx, yearID, classLevel, sectionName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		logger.Error("查询班级失败", zap.Int("class_level", classLevel), zap.String("section_name", sectionName), zap.Error(err))
		return nil, err
	}
	return section, nil
}

// getSection 按 ID 查询班级
func getSection(ctx context.Context, repo *repository.Repository, sectionID string, logger *zap.Logger) (*model.Section, error) {
	if _, err := uuid.Parse(sectionID); err != nil {
		return nil, ErrSectionNotFound
	}
	section, err := repo.Section.GetByID(ctx, sectionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSectionNotFound
		}
		logger.Error("查询班级失败", zap.String("section_id", sectionID), zap.Error(err))
		return nil, err
	}
	return section, nil
}

func toSubjectClassResponse(sc *model.SubjectClass) dto.SubjectClassResponse {
	resp := dto.SubjectClassResponse{
		ID:        sc.ID,
		SectionID: sc.SectionID,
		CourseID:  sc.CourseID,
		Subject:   sc.CourseName(),
	}
	if sc.Section != nil {
		resp.Section = sc.Section.Label()
	}
	if sc.Course != nil {
		resp.CourseCode = sc.Course.Code
	}
	if sc.TeacherID != nil {
		resp.TeacherID = *sc.TeacherID
	}
	if sc.Teacher != nil {
		resp.TeacherName = sc.Teacher.FullName
	}
	return resp
}
