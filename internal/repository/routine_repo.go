package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ahmed-sakil/asian-school/internal/model"
)

// routineLockNamespace advisory lock 的命名空间（pg_advisory_xact_lock 第一个参数）
const routineLockNamespace = 7301

// RoutineSlotRepository 课表数据访问接口
type RoutineSlotRepository interface {
	// WithPeriodLock 在持有 (day, period) 排他锁的事务内执行 fn
	// postgres 使用事务级 advisory lock；sqlite 本身单写者
	WithPeriodLock(ctx context.Context, day string, period int, fn func(tx RoutineSlotRepository) error) error
	// FindTeacherConflict 查找教师在 (day, period) 已占用的、不属于 excludeSectionID 的课表格子
	// 无冲突时返回 (nil, nil)；命中时预加载 Section
	FindTeacherConflict(ctx context.Context, teacherID, day string, period int, excludeSectionID string) (*model.RoutineSlot, error)
	// Upsert 按 (section_id, day, period) 写入，回填最终记录
	Upsert(ctx context.Context, slot *model.RoutineSlot) error
	GetByID(ctx context.Context, id string) (*model.RoutineSlot, error)
	Delete(ctx context.Context, id string) error
	// ListBySection 预加载 SubjectClass.Course / SubjectClass.Teacher
	ListBySection(ctx context.Context, sectionID string) ([]model.RoutineSlot, error)
	// ListByTeacher 预加载 Section / SubjectClass.Course
	ListByTeacher(ctx context.Context, teacherID string) ([]model.RoutineSlot, error)
}

type routineSlotRepo struct {
	db *gorm.DB
}

func NewRoutineSlotRepo(db *gorm.DB) RoutineSlotRepository {
	return &routineSlotRepo{db: db}
}

// periodLockKey (day, period) → 锁键；day 为 SUNDAY=0 … SATURDAY=6
func periodLockKey(day string, period int) int {
	return model.DayIndex(day)*100 + period
}

// lockPeriod 在 tx 内获取 (day, period) 事务级锁；非 postgres 时为空操作
func lockPeriod(tx *gorm.DB, day string, period int) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(CAST(? AS integer), CAST(? AS integer))",
		routineLockNamespace, periodLockKey(day, period)).Error
}

func (r *routineSlotRepo) WithPeriodLock(ctx context.Context, day string, period int, fn func(tx RoutineSlotRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPeriod(tx, day, period); err != nil {
			return err
		}
		return fn(&routineSlotRepo{db: tx})
	})
}

func (r *routineSlotRepo) FindTeacherConflict(ctx context.Context, teacherID, day string, period int, excludeSectionID string) (*model.RoutineSlot, error) {
	var slots []model.RoutineSlot
	err := r.db.WithContext(ctx).
		Joins("JOIN subject_classes sc ON sc.id = routine_slots.subject_class_id").
		Where("routine_slots.day = ? AND routine_slots.period = ?", day, period).
		Where("sc.teacher_id = ? AND routine_slots.section_id <> ?", teacherID, excludeSectionID).
		Preload("Section").
		Preload("SubjectClass.Course").
		Limit(1).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, nil
	}
	return &slots[0], nil
}

func (r *routineSlotRepo) Upsert(ctx context.Context, slot *model.RoutineSlot) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "section_id"}, {Name: "day"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject_class_id", "updated_at"}),
		}).
		Create(slot).Error
	if err != nil {
		return err
	}
	// 覆盖已有格子时主键以库中记录为准
	var stored model.RoutineSlot
	err = r.db.WithContext(ctx).
		Where("section_id = ? AND day = ? AND period = ?", slot.SectionID, slot.Day, slot.Period).
		First(&stored).Error
	if err != nil {
		return err
	}
	*slot = stored
	return nil
}

func (r *routineSlotRepo) GetByID(ctx context.Context, id string) (*model.RoutineSlot, error) {
	var slot model.RoutineSlot
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&slot).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *routineSlotRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.RoutineSlot{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *routineSlotRepo) ListBySection(ctx context.Context, sectionID string) ([]model.RoutineSlot, error) {
	var slots []model.RoutineSlot
	err := r.db.WithContext(ctx).
		Preload("SubjectClass.Course").
		Preload("SubjectClass.Teacher").
		Where("section_id = ?", sectionID).
		Order("day ASC, period ASC").
		Find(&slots).Error
	return slots, err
}

func (r *routineSlotRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.RoutineSlot, error) {
	var slots []model.RoutineSlot
	err := r.db.WithContext(ctx).
		Joins("JOIN subject_classes sc ON sc.id = routine_slots.subject_class_id").
		Where("sc.teacher_id = ?", teacherID).
		Preload("Section").
		Preload("SubjectClass.Course").
		Order("routine_slots.day ASC, routine_slots.period ASC").
		Find(&slots).Error
	return slots, err
}
