package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ahmed-sakil/asian-school/config"
	"github.com/ahmed-sakil/asian-school/internal/dto"
	"github.com/ahmed-sakil/asian-school/internal/model"
	"github.com/ahmed-sakil/asian-school/internal/repository"
	"github.com/ahmed-sakil/asian-school/pkg/metrics"
)

// ── 课表模块业务错误 ──

var (
	ErrBreakPeriod                 = errors.New("课间休息节次不可排课")
	ErrInvalidSlot                 = errors.New("星期或节次不在学校作息范围内")
	ErrSubjectClassNotFound        = errors.New("授课班级不存在")
	ErrSubjectClassSectionMismatch = errors.New("授课班级不属于该班级")
	ErrNoTeacherAssigned           = errors.New("该课程尚未分配任课教师")
	ErrRoutineSlotNotFound         = errors.New("课表格子不存在")
)

// TeacherConflictError 教师在同一时间已被其他班级占用
type TeacherConflictError struct {
	TeacherID    string
	Day          string
	Period       int
	SectionID    string // 已占用的班级
	SectionLabel string // 如 "9-B"
	Subject      string
}

// Error 返回客户端直接展示的提示
func (e *TeacherConflictError) Error() string {
	return fmt.Sprintf("Teacher is busy! Assigned to Class %s at this time.", e.SectionLabel)
}

// newTeacherConflict 由占用格子构造冲突错误
func newTeacherConflict(teacherID string, busy *model.RoutineSlot) *TeacherConflictError {
	conflict := &TeacherConflictError{
		TeacherID: teacherID,
		Day:       busy.Day,
		Period:    busy.Period,
		SectionID: busy.SectionID,
	}
	if busy.Section != nil {
		conflict.SectionLabel = busy.Section.Label()
	}
	if busy.SubjectClass != nil {
		conflict.Subject = busy.SubjectClass.CourseName()
	}
	return conflict
}

// RoutineService 课表业务接口
type RoutineService interface {
	// AssignSlot 为班级的 (星期, 节次) 排课；同一时间同一教师只能出现在一个班级
	AssignSlot(ctx context.Context, req *dto.AssignSlotRequest) (*dto.RoutineSlotResponse, error)
	// ClearSlot 删除课表格子
	ClearSlot(ctx context.Context, slotID string) error
	// GetSectionGrid 班级课表 + 可排课程
	GetSectionGrid(ctx context.Context, classLevel int, sectionName string) (*dto.SectionGridResponse, error)
	// GetTeacherRoutine 教师跨班级的全部课表格子，按星期、节次排序
	GetTeacherRoutine(ctx context.Context, teacherID string) ([]dto.RoutineSlotResponse, error)
	// GetStudentRoutine 学生所在班级的课表
	GetStudentRoutine(ctx context.Context, studentID string) (*dto.SectionGridResponse, error)
}

type routineService struct {
	cfg     *config.Config
	repo    *repository.Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewRoutineService 创建 RoutineService 实例
func NewRoutineService(cfg *config.Config, repo *repository.Repository, m *metrics.Metrics, logger *zap.Logger) RoutineService {
	return &routineService{cfg: cfg, repo: repo, metrics: m, logger: logger}
}

// ════════════════════════════════════════════════════════════
// AssignSlot
// ════════════════════════════════════════════════════════════
//
// 冲突检查与写入在同一个持有 (day, period) 锁的事务中完成，
// 两个并发请求为同一教师抢占不同班级的同一时段时只有一个成功。

func (s *routineService) AssignSlot(ctx context.Context, req *dto.AssignSlotRequest) (*dto.RoutineSlotResponse, error) {
	if err := s.validateSlot(req.Day, req.Period); err != nil {
		return nil, err
	}

	sc, err := s.repo.SubjectClass.GetByID(ctx, req.SubjectClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectClassNotFound
		}
		s.logger.Error("查询授课班级失败", zap.String("subject_class_id", req.SubjectClassID), zap.Error(err))
		return nil, err
	}
	if sc.SectionID != req.SectionID {
		return nil, ErrSubjectClassSectionMismatch
	}
	if sc.TeacherID == nil || *sc.TeacherID == "" {
		return nil, ErrNoTeacherAssigned
	}
	teacherID := *sc.TeacherID

	slot := &model.RoutineSlot{
		SectionID:      req.SectionID,
		Day:            req.Day,
		Period:         req.Period,
		SubjectClassID: sc.ID,
	}
	err = s.repo.RoutineSlot.WithPeriodLock(ctx, req.Day, req.Period, func(tx repository.RoutineSlotRepository) error {
		busy, err := tx.FindTeacherConflict(ctx, teacherID, req.Day, req.Period, req.SectionID)
		if err != nil {
			return err
		}
		if busy != nil {
			return newTeacherConflict(teacherID, busy)
		}
		return tx.Upsert(ctx, slot)
	})
	if err != nil {
		var conflict *TeacherConflictError
		if errors.As(err, &conflict) {
			if s.metrics != nil {
				s.metrics.RoutineConflicts.Inc()
			}
			s.logger.Info("排课冲突",
				zap.String("teacher_id", teacherID),
				zap.String("day", req.Day),
				zap.Int("period", req.Period),
				zap.String("busy_section", conflict.SectionLabel),
			)
			return nil, conflict
		}
		s.logger.Error("保存课表失败", zap.String("section_id", req.SectionID), zap.Error(err))
		return nil, err
	}

	slot.SubjectClass = sc
	s.logger.Info("课表已更新",
		zap.String("section_id", slot.SectionID),
		zap.String("day", slot.Day),
		zap.Int("period", slot.Period),
		zap.String("subject_class_id", slot.SubjectClassID),
	)
	resp := s.toSlotResponse(slot)
	return &resp, nil
}

func (s *routineService) validateSlot(day string, period int) error {
	if period == s.cfg.School.BreakPeriod {
		return ErrBreakPeriod
	}
	if period < 1 || period > s.cfg.School.PeriodsPerDay {
		return ErrInvalidSlot
	}
	if !s.cfg.School.IsSchoolDay(day) {
		return ErrInvalidSlot
	}
	return nil
}

func (s *routineService) ClearSlot(ctx context.Context, slotID string) error {
	if _, err := uuid.Parse(slotID); err != nil {
		return ErrRoutineSlotNotFound
	}
	if err := s.repo.RoutineSlot.Delete(ctx, slotID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoutineSlotNotFound
		}
		s.logger.Error("删除课表格子失败", zap.String("slot_id", slotID), zap.Error(err))
		return err
	}
	s.logger.Info("课表格子已删除", zap.String("slot_id", slotID))
	return nil
}

func (s *routineService) GetSectionGrid(ctx context.Context, classLevel int, sectionName string) (*dto.SectionGridResponse, error) {
	section, err := findSection(ctx, s.repo, s.cfg.School.AcademicYear, classLevel, sectionName, s.logger)
	if err != nil {
		return nil, err
	}
	return s.sectionGrid(ctx, section)
}

func (s *routineService) GetStudentRoutine(ctx context.Context, studentID string) (*dto.SectionGridResponse, error) {
	student, err := findUserWithRole(ctx, s.repo, studentID, model.RoleStudent, ErrStudentNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	section, err := activeSection(ctx, s.repo, student.ID, s.cfg.School.AcademicYear, s.logger)
	if err != nil {
		return nil, err
	}
	return s.sectionGrid(ctx, section)
}

func (s *routineService) sectionGrid(ctx context.Context, section *model.Section) (*dto.SectionGridResponse, error) {
	slots, err := s.repo.RoutineSlot.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}
	subjects, err := s.repo.SubjectClass.ListBySection(ctx, section.ID)
	if err != nil {
		s.logger.Error("查询班级课程失败", zap.String("section_id", section.ID), zap.Error(err))
		return nil, err
	}
	sortSlots(slots)

	grid := &dto.SectionGridResponse{
		SectionID:     section.ID,
		Section:       section.Label(),
		Days:          s.cfg.School.SchoolDays,
		PeriodsPerDay: s.cfg.School.PeriodsPerDay,
		BreakPeriod:   s.cfg.School.BreakPeriod,
		Slots:         make([]dto.RoutineSlotResponse, 0, len(slots)),
		Subjects:      make([]dto.SubjectClassResponse, 0, len(subjects)),
	}
	for i := range slots {
		slots[i].Section = section
		grid.Slots = append(grid.Slots, s.toSlotResponse(&slots[i]))
	}
	// 只列出已有任课教师的课程，未分配教师的课程无法排课
	for i := range subjects {
		if subjects[i].TeacherID == nil {
			continue
		}
		subjects[i].Section = section
		grid.Subjects = append(grid.Subjects, toSubjectClassResponse(&subjects[i]))
	}
	return grid, nil
}

func (s *routineService) GetTeacherRoutine(ctx context.Context, teacherID string) ([]dto.RoutineSlotResponse, error) {
	teacher, err := findUserWithRole(ctx, s.repo, teacherID, model.RoleTeacher, ErrTeacherNotFound, s.logger)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.RoutineSlot.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		s.logger.Error("查询教师课表失败", zap.String("teacher_id", teacher.ID), zap.Error(err))
		return nil, err
	}
	sortSlots(slots)

	result := make([]dto.RoutineSlotResponse, 0, len(slots))
	for i := range slots {
		if slots[i].SubjectClass != nil {
			slots[i].SubjectClass.Teacher = teacher
		}
		result = append(result, s.toSlotResponse(&slots[i]))
	}
	return result, nil
}

// sortSlots 按星期序号、节次排序（库中 day 为字符串，字典序不可用）
func sortSlots(slots []model.RoutineSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := model.DayIndex(slots[i].Day), model.DayIndex(slots[j].Day)
		if di != dj {
			return di < dj
		}
		return slots[i].Period < slots[j].Period
	})
}

func (s *routineService) toSlotResponse(slot *model.RoutineSlot) dto.RoutineSlotResponse {
	resp := dto.RoutineSlotResponse{
		ID:             slot.ID,
		SectionID:      slot.SectionID,
		Day:            slot.Day,
		Period:         slot.Period,
		SubjectClassID: slot.SubjectClassID,
	}
	if start, end, ok := s.cfg.School.PeriodTime(slot.Period); ok {
		resp.StartTime, resp.EndTime = start, end
	}
	if slot.Section != nil {
		resp.Section = slot.Section.Label()
	}
	if sc := slot.SubjectClass; sc != nil {
		resp.Subject = sc.CourseName()
		if sc.TeacherID != nil {
			resp.TeacherID = *sc.TeacherID
		}
		if sc.Teacher != nil {
			resp.TeacherName = sc.Teacher.FullName
		}
	}
	return resp
}
